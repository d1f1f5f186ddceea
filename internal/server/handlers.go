package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"netboxdeploy/internal/artifact"
	"netboxdeploy/internal/config"
	"netboxdeploy/internal/history"
	"netboxdeploy/internal/security"
	"netboxdeploy/pkg/templates"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	MaxPayloadBytes    = 1_000_000 // 1 MB
	RecentRendersLimit = 10        // Number of recent renders returned by the history endpoint
)

// acceptedContentTypes are the body formats config.Parse understands
var acceptedContentTypes = map[string]bool{
	"application/json":   true,
	"application/yaml":   true,
	"application/x-yaml": true,
	"text/yaml":          true,
}

// ArtifactResponse is the wire form of a rendered artifact
type ArtifactResponse struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	Content string `json:"content"`
}

// RenderResponse is returned by POST /render/{deployment}
type RenderResponse struct {
	Deployment string             `json:"deployment"`
	Digest     string             `json:"digest"`
	Artifacts  []ArtifactResponse `json:"artifacts"`
}

// ValidationResponse is returned for configs that fail validation
type ValidationResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"templates": templates.ListTemplates(),
		"history":   s.History != nil && !s.TestMode,
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleValidate validates a posted config without rendering it
func (s *Server) HandleValidate(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.readConfig(w, r)
	if !ok {
		return
	}

	c := cfg.WithDefaults()
	if err := config.Validate(c); err != nil {
		s.respondValidation(w, err)
		return
	}

	warnings := append(security.CheckSecretKey(c.SecretKey), config.Warnings(c)...)
	if warnings == nil {
		warnings = []string{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"warnings": warnings,
	})
}

// HandleRender renders the posted config and records the outcome
func (s *Server) HandleRender(w http.ResponseWriter, r *http.Request) {
	deployment := chi.URLParam(r, "deployment")

	// Validate deployment name for security
	if err := security.ValidateDeploymentName(deployment); err != nil {
		s.Logger.Warn("invalid deployment name in render request", zap.String("deployment", deployment), zap.Error(err))
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid deployment name: %v", err)})
		return
	}

	provision, _ := strconv.ParseBool(r.URL.Query().Get("provision"))

	cfg, ok := s.readConfig(w, r)
	if !ok {
		return
	}

	var (
		set artifact.Set
		err error
	)
	if provision {
		set, err = s.Renderer.RenderDeployment(cfg)
	} else {
		set, err = s.Renderer.Render(cfg)
	}

	s.recordRender(r, deployment, set, err)

	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			s.respondValidation(w, err)
			return
		}
		s.Logger.Error("render failed", zap.String("deployment", deployment), zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Render failed"})
		return
	}

	response := RenderResponse{
		Deployment: deployment,
		Digest:     set.Digest(),
		Artifacts:  make([]ArtifactResponse, 0, len(set)),
	}
	for _, a := range set {
		response.Artifacts = append(response.Artifacts, ArtifactResponse{
			Name:    a.Name,
			Path:    a.Path,
			Mode:    fmt.Sprintf("%04o", a.Mode.Perm()),
			Content: a.Content,
		})
	}

	s.Logger.Info("render completed",
		zap.String("deployment", deployment),
		zap.Int("artifacts", len(set)),
		zap.String("digest", response.Digest))

	s.respondJSON(w, http.StatusOK, response)
}

// HandleRenders returns the render history of a deployment
func (s *Server) HandleRenders(w http.ResponseWriter, r *http.Request) {
	deployment := chi.URLParam(r, "deployment")

	// Validate deployment name for security
	if err := security.ValidateDeploymentName(deployment); err != nil {
		s.Logger.Warn("invalid deployment name in history request", zap.String("deployment", deployment), zap.Error(err))
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid deployment name: %v", err)})
		return
	}

	// Check if history is available
	if s.TestMode || s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "History not available"})
		return
	}

	latest, err := s.History.GetLatestRender(r.Context(), deployment)
	if err != nil {
		s.Logger.Error("failed to get latest render", zap.String("deployment", deployment), zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch render history"})
		return
	}

	if latest == nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown deployment"})
		return
	}

	recent, err := s.History.GetRenderHistory(r.Context(), deployment, RecentRendersLimit)
	if err != nil {
		s.Logger.Error("failed to get render history", zap.String("deployment", deployment), zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch render history"})
		return
	}

	s.respondJSON(w, http.StatusOK, history.DeploymentStatus{
		Deployment:    deployment,
		LatestRender:  latest,
		RecentHistory: recent,
	})
}

// readConfig checks and parses the request body. It writes the error
// response itself and reports false when the request cannot proceed.
func (s *Server) readConfig(w http.ResponseWriter, r *http.Request) (config.DeploymentConfig, bool) {
	// Check payload size (ContentLength can be -1 if not set)
	if r.ContentLength > MaxPayloadBytes {
		s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
		return config.DeploymentConfig{}, false
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !acceptedContentTypes[mediaType] {
		s.respondJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "Invalid content type"})
		return config.DeploymentConfig{}, false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes+1))
	if err != nil {
		s.Logger.Error("failed to read request body", zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read payload"})
		return config.DeploymentConfig{}, false
	}
	if len(body) > MaxPayloadBytes {
		s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
		return config.DeploymentConfig{}, false
	}

	cfg, err := config.Parse(body)
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			s.respondValidation(w, err)
		} else {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return config.DeploymentConfig{}, false
	}

	return cfg, true
}

func (s *Server) recordRender(r *http.Request, deployment string, set artifact.Set, renderErr error) {
	if s.TestMode || s.History == nil {
		return
	}

	if _, err := s.History.RecordRender(r.Context(), history.NewRenderRecord(deployment, set, renderErr)); err != nil {
		s.Logger.Error("failed to record render history", zap.String("deployment", deployment), zap.Error(err))
	}
}

// respondValidation answers 422 with the offending fields
func (s *Server) respondValidation(w http.ResponseWriter, err error) {
	fields := config.Fields(err)
	if fields == nil {
		fields = []string{}
	}
	s.respondJSON(w, http.StatusUnprocessableEntity, ValidationResponse{
		Error:  err.Error(),
		Fields: fields,
	})
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}
