package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"netboxdeploy/internal/artifact"
	"netboxdeploy/internal/config"
	"netboxdeploy/internal/history"
	"netboxdeploy/internal/install"
	"netboxdeploy/internal/logging"
	"netboxdeploy/internal/render"
	"netboxdeploy/internal/security"
	"netboxdeploy/pkg/fileutil"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// defaultConfigName is searched for when no config path is given
const defaultConfigName = "netbox.yaml"

// errInvalid is returned after validation problems have been printed
var errInvalid = errors.New("deployment config is invalid")

// findDeploymentConfig returns the config path from args or the default
// search locations.
func findDeploymentConfig(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	path, err := fileutil.FindConfig(defaultConfigName)
	if err != nil {
		return "", fmt.Errorf("no deployment config given and %s not found in default locations: %w", defaultConfigName, err)
	}
	return path, nil
}

// deploymentName names a deployment after its config file unless overridden.
func deploymentName(path, override string) (string, error) {
	name := override
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := security.ValidateDeploymentName(name); err != nil {
		return "", err
	}
	return name, nil
}

// loadDeployment reads a deployment config and pins version: latest to the
// current upstream release.
func loadDeployment(ctx context.Context, path string, resolver *install.ReleaseResolver) (config.DeploymentConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if cfg.Version == "latest" {
		cfg, err = resolver.ResolveConfig(ctx, cfg)
		if err != nil {
			return cfg, fmt.Errorf("failed to resolve latest NetBox release: %w", err)
		}
	}

	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logLevel, logFormat)
}

func newRenderer(logger *zap.Logger, templateDirs ...string) *render.Renderer {
	opts := []render.Option{render.WithLogger(logger)}
	if len(templateDirs) > 0 {
		opts = append(opts, render.WithTemplateDirs(templateDirs...))
	}
	return render.New(opts...)
}

// templateDirs returns the configured override directory, if any
func templateDirs() []string {
	if templateDir == "" {
		return nil
	}
	return []string{templateDir}
}

func renderSet(r *render.Renderer, cfg config.DeploymentConfig, provision bool) (artifact.Set, error) {
	if provision {
		return r.RenderDeployment(cfg)
	}
	return r.Render(cfg)
}

// reportValidation prints every validation problem in err. It returns
// errInvalid for validation failures and err unchanged otherwise.
func reportValidation(w io.Writer, err error) error {
	if !errors.Is(err, config.ErrInvalidConfig) {
		return err
	}

	for _, e := range multierr.Errors(err) {
		var ve *config.ValidationError
		if errors.As(e, &ve) {
			printFail(w, fmt.Sprintf("%s: %s", ve.Field, ve.Reason))
		} else {
			printFail(w, e.Error())
		}
	}
	return errInvalid
}

// recordRender stores the outcome of a render. Failures are logged only.
func recordRender(ctx context.Context, logger *zap.Logger, dbPath, deployment string, set artifact.Set, renderErr error) {
	hist, err := history.NewHistory(dbPath)
	if err != nil {
		logger.Warn("render history unavailable", zap.String("db", dbPath), zap.Error(err))
		return
	}
	defer hist.Close()

	if _, err := hist.RecordRender(ctx, history.NewRenderRecord(deployment, set, renderErr)); err != nil {
		logger.Warn("failed to record render", zap.String("deployment", deployment), zap.Error(err))
	}
}
