// Package install renders the release installation procedure for a NetBox
// host. Nothing here executes commands; the plan is emitted as a POSIX shell
// script for an external runner.
package install

import (
	"fmt"
	"path"
	"strings"

	"netboxdeploy/internal/artifact"
	"netboxdeploy/internal/config"
	"netboxdeploy/internal/security"

	"github.com/kballard/go-shellquote"
)

// ScriptPath is where the install script is placed on the host.
const ScriptPath = "/etc/netbox/provision/install.sh"

// Step is one command of the installation.
type Step struct {
	Name    string
	Command []string
	// AllowFailure lets the script continue when the command fails, for
	// commands that are not idempotent on their own.
	AllowFailure bool
}

// Plan is the ordered installation of one release.
type Plan struct {
	Version    string
	ReleaseDir string
	NetBoxDir  string
	Steps      []Step
}

// NewPlan builds the installation steps from a defaulted, validated config.
func NewPlan(cfg config.DeploymentConfig) Plan {
	netboxDir := cfg.NetBoxDir()
	releaseDir := cfg.ReleaseDir()
	archive := path.Join(cfg.DownloadTmpDir, "netbox-"+cfg.Version+".tar.gz")
	venv := path.Join(netboxDir, "venv")
	python := path.Join(venv, "bin", "python3")
	pip := path.Join(venv, "bin", "pip")
	manage := path.Join(netboxDir, "netbox", "manage.py")
	owner := cfg.User + ":" + cfg.Group

	steps := []Step{
		{Name: "create group", Command: shell(fmt.Sprintf("getent group %s >/dev/null || groupadd --system %s",
			shellquote.Join(cfg.Group), shellquote.Join(cfg.Group)))},
		{Name: "create user", Command: shell(fmt.Sprintf("id -u %s >/dev/null 2>&1 || useradd --system --gid %s --home-dir %s --shell /usr/sbin/nologin %s",
			shellquote.Join(cfg.User), shellquote.Join(cfg.Group), shellquote.Join(netboxDir), shellquote.Join(cfg.User)))},
		{Name: "create download directory", Command: []string{"mkdir", "-p", cfg.DownloadTmpDir}},
		{Name: "download release", Command: []string{"curl", "-fsSL", "-o", archive, cfg.DownloadURL}},
	}

	if cfg.DownloadChecksum != "" {
		line := strings.ToLower(cfg.DownloadChecksum) + "  " + archive
		steps = append(steps, Step{
			Name:    "verify checksum",
			Command: shell(fmt.Sprintf("echo %s | %ssum -c -", shellquote.Join(line), cfg.DownloadChecksumType)),
		})
	}

	steps = append(steps,
		Step{Name: "create release directory", Command: []string{"mkdir", "-p", releaseDir}},
		Step{Name: "extract release", Command: []string{"tar", "-xzf", archive, "-C", releaseDir, "--strip-components=1"}},
		Step{Name: "check rendered configuration", Command: []string{"test", "-f", path.Join(releaseDir, "netbox", "netbox", "configuration.py")}},
		// ln -sfn would create the link inside an existing directory
		Step{Name: "check current release link", Command: shell(fmt.Sprintf("test ! -e %s || test -L %s",
			shellquote.Join(netboxDir), shellquote.Join(netboxDir)))},
		Step{Name: "switch current release", Command: []string{"ln", "-sfn", releaseDir, netboxDir}},
		Step{Name: "create virtualenv", Command: []string{"python3", "-m", "venv", venv}},
		Step{Name: "install requirements", Command: []string{pip, "install", "-r", path.Join(netboxDir, "requirements.txt")}},
		Step{Name: "install local requirements", Command: []string{pip, "install", "-r", path.Join(netboxDir, "local_requirements.txt")}},
		Step{Name: "apply database migrations", Command: []string{python, manage, "migrate"}},
		Step{Name: "collect static files", Command: []string{python, manage, "collectstatic", "--no-input"}},
		Step{Name: "remove stale content types", Command: []string{python, manage, "remove_stale_contenttypes", "--no-input"}},
		Step{Name: "clear expired sessions", Command: []string{python, manage, "clearsessions"}},
		// createsuperuser fails once the account exists
		Step{Name: "create superuser", Command: []string{python, manage, "createsuperuser", "--no-input",
			"--username", cfg.SuperuserUsername, "--email", cfg.SuperuserEmail}, AllowFailure: true},
		Step{Name: "set ownership", Command: []string{"chown", "-R", owner, releaseDir}},
	)

	return Plan{
		Version:    cfg.Version,
		ReleaseDir: releaseDir,
		NetBoxDir:  netboxDir,
		Steps:      steps,
	}
}

// Script renders the plan as a POSIX shell script. Every argument is quoted.
func (p Plan) Script() string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "# Managed by netboxdeploy: install NetBox %s into %s\n", p.Version, p.ReleaseDir)
	b.WriteString("set -eu\n")

	for _, step := range p.Steps {
		b.WriteString("\n")
		fmt.Fprintf(&b, "echo %s\n", shellquote.Join("==> "+step.Name))
		b.WriteString(shellquote.Join(step.Command...))
		if step.AllowFailure {
			b.WriteString(" || true")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// StepNames returns the step names in order.
func (p Plan) StepNames() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

// Artifact wraps the script for writing to the host.
func (p Plan) Artifact() artifact.Artifact {
	return artifact.Artifact{
		Name:    "install.script",
		Path:    ScriptPath,
		Mode:    security.PermExecutable,
		Content: p.Script(),
	}
}

func shell(script string) []string {
	return []string{"sh", "-c", script}
}
