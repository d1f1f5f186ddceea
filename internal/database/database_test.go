package database

import (
	"strings"
	"testing"

	"netboxdeploy/internal/config"
	"netboxdeploy/internal/security"
)

func TestNewPlan_FromFixture(t *testing.T) {
	cfg := config.DeploymentConfig{
		SecretKey:        "test secret key",
		DatabaseName:     "testdb",
		DatabaseUser:     "testdbuser",
		DatabasePassword: "testdbpass",
		DatabaseEncoding: "UTF-8",
		DatabaseLocale:   "en_US.UTF-8",
	}.WithDefaults()

	plan := NewPlan(cfg)
	sql := plan.SQL()

	expectations := []string{
		`WHERE rolname = 'testdbuser'`,
		`CREATE ROLE "testdbuser" LOGIN;`,
		`ALTER ROLE "testdbuser" WITH LOGIN PASSWORD 'testdbpass';`,
		`CREATE DATABASE "testdb" OWNER "testdbuser" ENCODING ''UTF-8'' LC_COLLATE ''en_US.UTF-8'' LC_CTYPE ''en_US.UTF-8'' TEMPLATE template0`,
		`WHERE datname = 'testdb')\gexec`,
		`GRANT ALL PRIVILEGES ON DATABASE "testdb" TO "testdbuser";`,
	}

	for _, expected := range expectations {
		if !strings.Contains(sql, expected) {
			t.Errorf("SQL() should contain %q, got:\n%s", expected, sql)
		}
	}
}

func TestNewPlan_Defaults(t *testing.T) {
	plan := NewPlan(config.DeploymentConfig{SecretKey: "x"}.WithDefaults())

	if plan.Name != "netbox" || plan.User != "netbox" {
		t.Errorf("NewPlan() = %+v, want default netbox database and user", plan)
	}
	if plan.Encoding != config.DefaultDatabaseEncoding {
		t.Errorf("NewPlan() encoding = %q, want %q", plan.Encoding, config.DefaultDatabaseEncoding)
	}
	if plan.Locale != config.DefaultDatabaseLocale {
		t.Errorf("NewPlan() locale = %q, want %q", plan.Locale, config.DefaultDatabaseLocale)
	}
}

func TestSQL_QuotesHostileValues(t *testing.T) {
	plan := Plan{
		Name:     `net"box`,
		User:     "o'brien",
		Password: "pa'ss; DROP TABLE users; --",
		Encoding: "UTF-8",
		Locale:   "C",
	}

	sql := plan.SQL()

	expectations := []string{
		`CREATE ROLE "o'brien" LOGIN;`,
		`WHERE rolname = 'o''brien'`,
		`PASSWORD 'pa''ss; DROP TABLE users; --';`,
		`GRANT ALL PRIVILEGES ON DATABASE "net""box" TO "o'brien";`,
		`WHERE datname = 'net"box'`,
	}

	for _, expected := range expectations {
		if !strings.Contains(sql, expected) {
			t.Errorf("SQL() should contain %q, got:\n%s", expected, sql)
		}
	}
}

func TestSQL_DollarQuoteInRoleName(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		wantTag string
	}{
		{"plain", "netbox", "$provision$"},
		{"contains tag", "x$provision$; DROP DATABASE postgres; --", "$provision1$"},
		{"contains several tags", "$provision$$provision1$", "$provision2$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql := Plan{Name: "netbox", User: tt.user, Password: "pw", Encoding: "UTF-8", Locale: "C"}.SQL()

			start := strings.Index(sql, "DO "+tt.wantTag+"\n")
			if start < 0 {
				t.Fatalf("SQL() should open the block with %s, got:\n%s", tt.wantTag, sql)
			}
			block := sql[start+len("DO "+tt.wantTag):]
			end := strings.Index(block, tt.wantTag)
			if end < 0 {
				t.Fatalf("SQL() never closes %s, got:\n%s", tt.wantTag, sql)
			}
			if !strings.Contains(block[:end], "CREATE ROLE") || !strings.HasPrefix(block[end:], tt.wantTag+";\n") {
				t.Errorf("role name closed the DO block early:\n%s", sql)
			}
		})
	}
}

func TestSQL_Deterministic(t *testing.T) {
	plan := Plan{Name: "netbox", User: "netbox", Password: "pw", Encoding: "UTF-8", Locale: "C"}
	if plan.SQL() != plan.SQL() {
		t.Error("SQL() should be deterministic")
	}
}

func TestArtifact(t *testing.T) {
	plan := Plan{Name: "netbox", User: "netbox", Password: "pw", Encoding: "UTF-8", Locale: "C"}
	a := plan.Artifact()

	if a.Name != "database.provision" {
		t.Errorf("Artifact().Name = %q", a.Name)
	}
	if a.Path != ScriptPath {
		t.Errorf("Artifact().Path = %q, want %q", a.Path, ScriptPath)
	}
	if security.IsWorldReadable(a.Mode) {
		t.Errorf("Artifact() holds a password and must not be world readable, mode %04o", a.Mode)
	}
	if a.Content != plan.SQL() {
		t.Error("Artifact().Content should equal SQL()")
	}
}
