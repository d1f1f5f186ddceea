// Package database renders the PostgreSQL provisioning script for the
// NetBox database and role.
package database

import (
	"fmt"
	"strings"

	"netboxdeploy/internal/artifact"
	"netboxdeploy/internal/config"
	"netboxdeploy/internal/security"

	"github.com/jackc/pgx/v5"
)

// ScriptPath is where the provisioning script is placed on the host.
const ScriptPath = "/etc/netbox/provision/database.sql"

// Plan describes the database and role NetBox connects with.
type Plan struct {
	Name     string
	User     string
	Password string
	Encoding string
	Locale   string
}

// NewPlan takes the database parameters from a defaulted config.
func NewPlan(cfg config.DeploymentConfig) Plan {
	return Plan{
		Name:     cfg.DatabaseName,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Encoding: cfg.DatabaseEncoding,
		Locale:   cfg.DatabaseLocale,
	}
}

// SQL renders an idempotent script for psql. Running it twice leaves the
// cluster unchanged apart from resetting the role password.
func (p Plan) SQL() string {
	db := pgx.Identifier{p.Name}.Sanitize()
	role := pgx.Identifier{p.User}.Sanitize()

	var b strings.Builder
	b.WriteString("-- Managed by netboxdeploy. Run with: psql -v ON_ERROR_STOP=1 -f database.sql\n\n")

	body := fmt.Sprintf("\nBEGIN\n"+
		"    IF NOT EXISTS (SELECT FROM pg_catalog.pg_roles WHERE rolname = %s) THEN\n"+
		"        CREATE ROLE %s LOGIN;\n"+
		"    END IF;\nEND\n", literal(p.User), role)
	tag := dollarTag("provision", body)
	fmt.Fprintf(&b, "DO %s%s%s;\n\n", tag, body, tag)

	fmt.Fprintf(&b, "ALTER ROLE %s WITH LOGIN PASSWORD %s;\n\n", role, literal(p.Password))

	// CREATE DATABASE cannot run inside a DO block; \gexec runs it only
	// when the SELECT returns a row.
	fmt.Fprintf(&b, "SELECT %s\nWHERE NOT EXISTS (SELECT FROM pg_catalog.pg_database WHERE datname = %s)\\gexec\n\n",
		literal(fmt.Sprintf("CREATE DATABASE %s OWNER %s ENCODING %s LC_COLLATE %s LC_CTYPE %s TEMPLATE template0",
			db, role, literal(p.Encoding), literal(p.Locale), literal(p.Locale))),
		literal(p.Name))

	fmt.Fprintf(&b, "GRANT ALL PRIVILEGES ON DATABASE %s TO %s;\n", db, role)

	return b.String()
}

// Artifact wraps the script for writing to the host.
func (p Plan) Artifact() artifact.Artifact {
	return artifact.Artifact{
		Name:    "database.provision",
		Path:    ScriptPath,
		Mode:    security.PermSecretFile,
		Content: p.SQL(),
	}
}

// dollarTag returns a dollar-quote delimiter that does not occur in body, so
// interpolated values cannot close the quoted block.
func dollarTag(name, body string) string {
	tag := "$" + name + "$"
	for i := 1; strings.Contains(body, tag); i++ {
		tag = fmt.Sprintf("$%s%d$", name, i)
	}
	return tag
}

// literal quotes s as a standard-conforming SQL string literal.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
