package install

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"netboxdeploy/internal/config"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Upstream repository
const (
	ReleaseOwner = "netbox-community"
	ReleaseRepo  = "netbox"
)

// ErrReleaseNotFound is returned when the requested tag does not exist.
var ErrReleaseNotFound = errors.New("release not found")

// Release is a resolved upstream release.
type Release struct {
	Version     string
	Tag         string
	DownloadURL string
}

// ReleaseResolver looks up NetBox releases on GitHub.
type ReleaseResolver struct {
	client *github.Client
	owner  string
	repo   string
}

// NewReleaseResolver creates a resolver. An empty token uses anonymous
// (rate limited) API access.
func NewReleaseResolver(token string) *ReleaseResolver {
	return NewReleaseResolverWithClient(newGitHubClient(token))
}

// NewReleaseResolverWithClient creates a resolver around an existing client.
func NewReleaseResolverWithClient(client *github.Client) *ReleaseResolver {
	return &ReleaseResolver{
		client: client,
		owner:  ReleaseOwner,
		repo:   ReleaseRepo,
	}
}

func newGitHubClient(token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return github.NewClient(tc)
}

// Resolve returns the release for version. "latest" or "" picks the most
// recent published release; anything else is looked up as tag v<version>.
func (r *ReleaseResolver) Resolve(ctx context.Context, version string) (Release, error) {
	var (
		rel  *github.RepositoryRelease
		resp *github.Response
		err  error
	)

	if version == "" || version == "latest" {
		rel, resp, err = r.client.Repositories.GetLatestRelease(ctx, r.owner, r.repo)
	} else {
		tag := "v" + strings.TrimPrefix(version, "v")
		rel, resp, err = r.client.Repositories.GetReleaseByTag(ctx, r.owner, r.repo, tag)
	}
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return Release{}, fmt.Errorf("%w: %s", ErrReleaseNotFound, version)
		}
		return Release{}, fmt.Errorf("fetching release %s: %w", version, err)
	}

	tag := rel.GetTagName()
	if tag == "" {
		return Release{}, fmt.Errorf("release %s has no tag", version)
	}
	resolved := strings.TrimPrefix(tag, "v")

	return Release{
		Version:     resolved,
		Tag:         tag,
		DownloadURL: fmt.Sprintf(config.DownloadURLFormat, resolved),
	}, nil
}

// ResolveConfig replaces a "latest" version in cfg with the current release.
// Pinned versions are returned unchanged without an API call.
func (r *ReleaseResolver) ResolveConfig(ctx context.Context, cfg config.DeploymentConfig) (config.DeploymentConfig, error) {
	if cfg.Version != "latest" {
		return cfg, nil
	}

	rel, err := r.Resolve(ctx, cfg.Version)
	if err != nil {
		return cfg, err
	}

	cfg.Version = rel.Version
	if cfg.DownloadURL == "" {
		cfg.DownloadURL = rel.DownloadURL
	}
	return cfg, nil
}
