package history

import (
	"errors"
	"time"

	"netboxdeploy/internal/artifact"
	"netboxdeploy/internal/config"
)

// Render statuses
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

// RenderRecord represents a single render of a deployment in the database
type RenderRecord struct {
	ID            int64     `json:"id"`
	Deployment    string    `json:"deployment"`
	Status        string    `json:"status"` // success, invalid, failed
	StartedAt     time.Time `json:"started_at"`
	ArtifactCount int       `json:"artifact_count"`
	Digest        *string   `json:"digest,omitempty"`        // nullable
	ErrorMessage  *string   `json:"error_message,omitempty"` // nullable
}

// DeploymentStatus represents the latest render of a deployment
type DeploymentStatus struct {
	Deployment    string         `json:"deployment"`
	LatestRender  *RenderRecord  `json:"latest_render,omitempty"`
	RecentHistory []RenderRecord `json:"recent_history"`
}

// NewRenderRecord builds the record for the outcome of one render.
// Validation failures are recorded as invalid, anything else as failed.
func NewRenderRecord(deployment string, set artifact.Set, err error) *RenderRecord {
	record := &RenderRecord{Deployment: deployment}

	switch {
	case err == nil:
		digest := set.Digest()
		record.Status = StatusSuccess
		record.ArtifactCount = len(set)
		record.Digest = &digest
	case errors.Is(err, config.ErrInvalidConfig):
		msg := err.Error()
		record.Status = StatusInvalid
		record.ErrorMessage = &msg
	default:
		msg := err.Error()
		record.Status = StatusFailed
		record.ErrorMessage = &msg
	}

	return record
}
