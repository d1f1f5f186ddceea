// Package render turns a DeploymentConfig into the artifacts a NetBox host
// needs. Rendering is pure: the same config always yields byte-identical
// artifacts, and an invalid config yields no artifacts at all.
package render

import (
	"fmt"
	"os"
	"path"

	"netboxdeploy/internal/artifact"
	"netboxdeploy/internal/config"
	"netboxdeploy/internal/database"
	"netboxdeploy/internal/install"
	"netboxdeploy/internal/security"
	"netboxdeploy/pkg/templates"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Host locations
const (
	ParamsDir  = "/etc/netbox/params"
	SystemdDir = "/etc/systemd/system"
)

// Gunicorn settings
const (
	GunicornBind    = "127.0.0.1:8001"
	GunicornWorkers = 5
	GunicornThreads = 3
	GunicornTimeout = 120
)

// Renderer renders artifact sets. It holds no per-render state and is safe
// for concurrent use.
type Renderer struct {
	templates *templates.Set
	logger    *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTemplateDirs adds directories searched for template overrides.
func WithTemplateDirs(dirs ...string) Option {
	return func(r *Renderer) {
		r.templates = templates.New(dirs...)
	}
}

// WithLogger sets the logger used for secret key warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// New creates a Renderer using the embedded templates.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		templates: templates.New(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render validates cfg and renders the application artifacts. On a
// validation failure the error combines one *config.ValidationError per
// offending field and no artifacts are returned.
func (r *Renderer) Render(cfg config.DeploymentConfig) (artifact.Set, error) {
	c := cfg.WithDefaults()
	if err := config.Validate(c); err != nil {
		return nil, err
	}

	for _, warning := range security.CheckSecretKey(c.SecretKey) {
		r.logger.Warn("weak secret key", zap.String("reason", warning))
	}
	for _, warning := range config.Warnings(c) {
		r.logger.Warn("suspicious setting", zap.String("reason", warning))
	}

	return r.render(c)
}

// RenderDeployment renders the application artifacts followed by the
// database provisioning and release install scripts.
func (r *Renderer) RenderDeployment(cfg config.DeploymentConfig) (artifact.Set, error) {
	set, err := r.Render(cfg)
	if err != nil {
		return nil, err
	}

	c := cfg.WithDefaults()
	set = append(set,
		database.NewPlan(c).Artifact(),
		install.NewPlan(c).Artifact(),
	)
	return set, nil
}

// render places release files in the versioned release directory, which the
// install script later links as NetBoxDir. Units refer to the stable link.
func (r *Renderer) render(c config.DeploymentConfig) (artifact.Set, error) {
	p := NewParams(c)
	netboxDir := c.NetBoxDir()
	releaseDir := c.ReleaseDir()

	unit := map[string]string{
		"User":      c.User,
		"Group":     c.Group,
		"NetBoxDir": netboxDir,
	}

	var set artifact.Set
	addTemplate := func(name, target string, mode os.FileMode, tmpl string, data interface{}) error {
		content, err := r.templates.Render(tmpl, data)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", name, err)
		}
		set = append(set, artifact.Artifact{Name: name, Path: target, Mode: mode, Content: content})
		return nil
	}
	addJSON := func(name, file string, mode os.FileMode, v interface{}) error {
		content, err := marshal(v)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", name, err)
		}
		set = append(set, artifact.Artifact{Name: name, Path: path.Join(ParamsDir, file), Mode: mode, Content: content})
		return nil
	}

	if err := addTemplate("configuration", path.Join(releaseDir, "netbox", "netbox", "configuration.py"),
		security.PermConfigFile, templates.Configuration, p); err != nil {
		return nil, err
	}

	if err := addJSON("database", "database.json", security.PermSecretFile, p.Database); err != nil {
		return nil, err
	}
	for _, redis := range p.Redis {
		if err := addJSON("redis."+redis.Role, "redis-"+redis.Role+".json", security.PermSecretFile, redis); err != nil {
			return nil, err
		}
	}
	if err := addJSON("email", "email.json", security.PermSecretFile, p.Email); err != nil {
		return nil, err
	}
	if err := addJSON("security", "security.json", security.PermSecretFile, p.Security); err != nil {
		return nil, err
	}
	if err := addJSON("banners", "banners.json", security.PermPublicFile, p.Banners); err != nil {
		return nil, err
	}
	if err := addJSON("features", "features.json", security.PermPublicFile, p.Features); err != nil {
		return nil, err
	}

	gunicorn := map[string]interface{}{
		"Bind":    GunicornBind,
		"Workers": GunicornWorkers,
		"Threads": GunicornThreads,
		"Timeout": GunicornTimeout,
	}
	if err := addTemplate("gunicorn", path.Join(releaseDir, "gunicorn.py"),
		security.PermPublicFile, templates.Gunicorn, gunicorn); err != nil {
		return nil, err
	}
	if err := addTemplate("local-requirements", path.Join(releaseDir, "local_requirements.txt"),
		security.PermPublicFile, templates.LocalRequirements, map[string]interface{}{"Packages": localPackages(c)}); err != nil {
		return nil, err
	}

	if err := addTemplate("systemd.netbox", path.Join(SystemdDir, "netbox.service"),
		security.PermPublicFile, templates.NetBoxService, unit); err != nil {
		return nil, err
	}
	if err := addTemplate("systemd.netbox-rq", path.Join(SystemdDir, "netbox-rq.service"),
		security.PermPublicFile, templates.NetBoxRQService, unit); err != nil {
		return nil, err
	}

	return set, nil
}

// marshal renders v as indented JSON with a trailing newline. Struct field
// order fixes the key order.
func marshal(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// Render renders cfg with a default Renderer.
func Render(cfg config.DeploymentConfig) (artifact.Set, error) {
	return New().Render(cfg)
}
