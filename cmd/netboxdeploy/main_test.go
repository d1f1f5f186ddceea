package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"netboxdeploy/internal/config"
	"netboxdeploy/internal/history"
	"netboxdeploy/internal/install"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validYAML = `secret_key: test secret key
install_root: /opt
database_password: dbpass
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func resolver() *install.ReleaseResolver {
	return install.NewReleaseResolver("")
}

func TestDeploymentName(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		override string
		want     string
		wantErr  bool
	}{
		{"from file name", "/etc/netboxdeploy/dc1.yaml", "", "dc1", false},
		{"override", "/etc/netboxdeploy/netbox.yaml", "lab_2", "lab_2", false},
		{"invalid file name", "/tmp/my deployment.yaml", "", "", true},
		{"invalid override", "netbox.yaml", "-x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deploymentName(tt.path, tt.override)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderWith(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	var out bytes.Buffer

	err := renderWith(context.Background(), &out, zap.NewNop(), resolver(), renderOptions{
		ConfigPath: writeConfig(t, "dc1.yaml", validYAML),
		Root:       root,
		HistoryDB:  dbPath,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "opt/netbox-"+config.DefaultVersion+"/netbox/netbox/configuration.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "SECRET_KEY = 'test secret key'")

	info, err := os.Stat(filepath.Join(root, "etc/netbox/params/database.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Contains(t, out.String(), "Wrote ")

	hist, err := history.NewHistory(dbPath)
	require.NoError(t, err)
	defer hist.Close()

	latest, err := hist.GetLatestRender(context.Background(), "dc1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, history.StatusSuccess, latest.Status)
	assert.Equal(t, 12, latest.ArtifactCount)
}

func TestRenderWith_DryRun(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer

	err := renderWith(context.Background(), &out, zap.NewNop(), resolver(), renderOptions{
		ConfigPath: writeConfig(t, "dc1.yaml", validYAML),
		Root:       root,
		DryRun:     true,
		NoHistory:  true,
		Provision:  true,
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "install.script")
	assert.Contains(t, out.String(), "0750")
	assert.Contains(t, out.String(), "digest ")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run writes nothing")
}

func TestRenderWith_Invalid(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	var out bytes.Buffer

	err := renderWith(context.Background(), &out, zap.NewNop(), resolver(), renderOptions{
		ConfigPath: writeConfig(t, "dc1.yaml", "database_port: 70000\n"),
		Root:       root,
		HistoryDB:  dbPath,
	})
	require.True(t, errors.Is(err, errInvalid))
	assert.Contains(t, out.String(), "database_port: ")
	assert.Contains(t, out.String(), "secret_key: ")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "invalid configs write nothing")

	hist, err := history.NewHistory(dbPath)
	require.NoError(t, err)
	defer hist.Close()

	latest, err := hist.GetLatestRender(context.Background(), "dc1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, history.StatusInvalid, latest.Status)
}

func TestRenderWith_WriteFailureRecordedAsFailed(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0600))
	dbPath := filepath.Join(t.TempDir(), "history.db")
	var out bytes.Buffer

	err := renderWith(context.Background(), &out, zap.NewNop(), resolver(), renderOptions{
		ConfigPath: writeConfig(t, "dc1.yaml", validYAML),
		Root:       root,
		HistoryDB:  dbPath,
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, errInvalid))
	assert.Contains(t, out.String(), "[FAIL]")

	hist, err := history.NewHistory(dbPath)
	require.NoError(t, err)
	defer hist.Close()

	latest, err := hist.GetLatestRender(context.Background(), "dc1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, history.StatusFailed, latest.Status)
	require.NotNil(t, latest.ErrorMessage)
	assert.Contains(t, *latest.ErrorMessage, "artifact configuration")
}

func TestVerifyWith(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "netbox.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("hello"), 0644))
	hello := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	ctx := context.Background()
	var out bytes.Buffer

	good := writeConfig(t, "netbox.yaml", validYAML+"download_checksum: "+hello+"\n")
	require.NoError(t, verifyWith(ctx, &out, resolver(), good, archive))
	assert.Contains(t, out.String(), "Verified")

	bad := writeConfig(t, "netbox.yaml", validYAML+"download_checksum: "+strings.Repeat("0", 64)+"\n")
	err := verifyWith(ctx, &out, resolver(), bad, archive)
	assert.True(t, errors.Is(err, install.ErrChecksumMismatch))

	none := writeConfig(t, "netbox.yaml", validYAML)
	assert.Error(t, verifyWith(ctx, &out, resolver(), none, archive))
}

func TestValidateWith(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, validateWith(context.Background(), &out, resolver(), writeConfig(t, "netbox.yaml", validYAML)))
	assert.Contains(t, out.String(), "is valid")
	assert.Contains(t, out.String(), "[WARN]", "short secret key is reported")

	out.Reset()
	err := validateWith(context.Background(), &out, resolver(), writeConfig(t, "netbox.yaml", "secret_key: x\ndatbase_port: 1\n"))
	assert.True(t, errors.Is(err, errInvalid))
	assert.Contains(t, out.String(), "datbase_port")

	err = validateWith(context.Background(), &out, resolver(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, errInvalid))
}

func TestDiffWith(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, "netbox.yaml", validYAML)
	var out bytes.Buffer

	err := diffWith(context.Background(), &out, zap.NewNop(), resolver(), path, root, false, true)
	require.True(t, errors.Is(err, errChanged))
	assert.Contains(t, out.String(), "--- /dev/null")
	assert.Contains(t, out.String(), "+++ /etc/netbox/params/database.json")

	require.NoError(t, renderWith(context.Background(), &bytes.Buffer{}, zap.NewNop(), resolver(), renderOptions{
		ConfigPath: path,
		Root:       root,
		NoHistory:  true,
	}))

	out.Reset()
	require.NoError(t, diffWith(context.Background(), &out, zap.NewNop(), resolver(), path, root, false, true))
	assert.Contains(t, out.String(), "No changes")
}

func TestPlanWith(t *testing.T) {
	path := writeConfig(t, "netbox.yaml", validYAML)
	var out bytes.Buffer

	require.NoError(t, planWith(context.Background(), &out, resolver(), path, false))
	assert.True(t, strings.HasPrefix(out.String(), "#!/bin/sh\n"))
	assert.Contains(t, out.String(), "ln -sfn /opt/netbox-")

	out.Reset()
	require.NoError(t, planWith(context.Background(), &out, resolver(), path, true))
	assert.Contains(t, out.String(), `CREATE ROLE "netbox" LOGIN;`)

	out.Reset()
	err := planWith(context.Background(), &out, resolver(), writeConfig(t, "bad.yaml", "install_root: opt\n"), false)
	assert.True(t, errors.Is(err, errInvalid))
	assert.NotContains(t, out.String(), "#!/bin/sh")
}

func TestHistoryWith(t *testing.T) {
	hist, err := history.NewHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer hist.Close()

	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, historyWith(ctx, &out, hist, "", 10))
	assert.Contains(t, out.String(), "No renders recorded")

	_, err = hist.RecordRender(ctx, history.NewRenderRecord("dc1", nil, errors.New("disk full")))
	require.NoError(t, err)
	_, err = hist.RecordRender(ctx, history.NewRenderRecord("dc2", nil, nil))
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, historyWith(ctx, &out, hist, "", 10))
	assert.Contains(t, out.String(), "DEPLOYMENT")
	assert.Less(t, strings.Index(out.String(), "dc1"), strings.Index(out.String(), "dc2"))
	assert.Contains(t, out.String(), "disk full")

	out.Reset()
	require.NoError(t, historyWith(ctx, &out, hist, "dc2", 10))
	assert.Contains(t, out.String(), history.StatusSuccess)

	assert.Error(t, historyWith(ctx, &out, hist, "dc3", 10))
	assert.Error(t, historyWith(ctx, &out, hist, "../dc1", 10))
}

func TestCheckSecret(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, checkSecret(&out, "changeme"))
	assert.Contains(t, out.String(), "[WARN]")

	out.Reset()
	require.NoError(t, checkSecret(&out, "Qm9#xT2$vL7&pR4!sW8*yZ1^nK6@hJ3%dF5(gB0)cV_eA-uN+iO=wE"))
	assert.Contains(t, out.String(), "looks strong")
}

func TestIsLoopbackHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1", true},
		{"127.0.0.53", true},
		{"::1", true},
		{"localhost", true},
		{"0.0.0.0", false},
		{"::", false},
		{"192.0.2.1", false},
		{"netbox.example.com", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isLoopbackHost(tt.host), tt.host)
	}
}

func TestRunServe_RefusesRemoteWithoutFlag(t *testing.T) {
	serveHost, serveRemote, servePort = "0.0.0.0", false, 5000
	t.Cleanup(func() { serveHost, serveRemote = "127.0.0.1", false })

	err := runServe(serveCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--allow-remote")
}
