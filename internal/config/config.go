package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	DefaultUser             = "netbox"
	DefaultGroup            = "netbox"
	DefaultInstallRoot      = "/opt"
	DefaultDatabaseName     = "netbox"
	DefaultDatabaseUser     = "netbox"
	DefaultDatabasePassword = "netbox"
	DefaultDatabaseHost     = "localhost"
	DefaultDatabasePort     = 5432
	DefaultConnMaxAge       = 300
	DefaultDatabaseEncoding = "UTF-8"
	DefaultDatabaseLocale   = "en_US.UTF-8"
	DefaultRedisHost        = "localhost"
	DefaultRedisPort        = 6379
	DefaultRedisTimeout     = 300
	DefaultEmailServer      = "localhost"
	DefaultEmailPort        = 25
	DefaultEmailTimeout     = 10
	DefaultNapalmTimeout    = 30
	DefaultSuperuserName    = "admin"
	DefaultSuperuserEmail   = "admin@example.com"
	DefaultVersion          = "4.2.3"
	DefaultChecksumType     = "sha256"
	DefaultDownloadTmpDir   = "/var/tmp"

	// DownloadURLFormat is filled with the release version.
	DownloadURLFormat = "https://github.com/netbox-community/netbox/archive/v%s.tar.gz"
)

// defaultRedisDatabases keeps the roles on separate redis databases.
var defaultRedisDatabases = map[string]int{
	RoleWebhooks: 0,
	RoleCaching:  1,
}

// Load reads a deployment configuration from a YAML (or JSON) file.
// The returned config is not defaulted or validated.
func Load(path string) (DeploymentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DeploymentConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a DeploymentConfig.
//
// Each top-level key is decoded on its own so that unknown keys and values of
// the wrong type are reported as ValidationErrors naming the key.
func Parse(data []byte) (DeploymentConfig, error) {
	var cfg DeploymentConfig

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Empty document
	if len(doc.Content) == 0 {
		return cfg, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return cfg, fmt.Errorf("failed to parse YAML config: top level must be a mapping (line %d)", root.Line)
	}

	fields := yamlFieldIndex(reflect.TypeOf(cfg))
	value := reflect.ValueOf(&cfg).Elem()

	var errs error
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		idx, ok := fields[key]
		if !ok {
			errs = multierr.Append(errs, invalid(key, "unknown field (line %d)", root.Content[i].Line))
			continue
		}
		target := value.Field(idx).Addr().Interface()
		if err := root.Content[i+1].Decode(target); err != nil {
			errs = multierr.Append(errs, invalid(key, "%s", decodeReason(err)))
		}
	}

	return cfg, errs
}

func yamlFieldIndex(t reflect.Type) map[string]int {
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if tag != "" && tag != "-" {
			index[tag] = i
		}
	}
	return index
}

func decodeReason(err error) string {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return strings.Join(typeErr.Errors, "; ")
	}
	return err.Error()
}

// WithDefaults returns a copy of c with every omitted optional field set.
// c itself is left untouched.
func (c DeploymentConfig) WithDefaults() DeploymentConfig {
	out := c

	out.User = stringOr(c.User, DefaultUser)
	out.Group = stringOr(c.Group, DefaultGroup)
	out.InstallRoot = stringOr(c.InstallRoot, DefaultInstallRoot)

	if c.AllowedHosts == nil {
		out.AllowedHosts = []string{"*"}
	}

	out.DatabaseName = stringOr(c.DatabaseName, DefaultDatabaseName)
	out.DatabaseUser = stringOr(c.DatabaseUser, DefaultDatabaseUser)
	out.DatabasePassword = stringOr(c.DatabasePassword, DefaultDatabasePassword)
	out.DatabaseHost = stringOr(c.DatabaseHost, DefaultDatabaseHost)
	out.DatabasePort = intOr(c.DatabasePort, DefaultDatabasePort)
	out.DatabaseConnMaxAge = intOr(c.DatabaseConnMaxAge, DefaultConnMaxAge)
	out.DatabaseEncoding = stringOr(c.DatabaseEncoding, DefaultDatabaseEncoding)
	out.DatabaseLocale = stringOr(c.DatabaseLocale, DefaultDatabaseLocale)

	// Roles are only filled in when redis_options is omitted entirely; a
	// partial map is reported by Validate.
	out.RedisOptions = make(map[string]RedisEndpoint, 2)
	if c.RedisOptions == nil {
		for role, db := range defaultRedisDatabases {
			out.RedisOptions[role] = RedisEndpoint{Database: Int(db)}.withDefaults()
		}
	} else {
		for role, ep := range c.RedisOptions {
			out.RedisOptions[role] = ep.withDefaults()
		}
	}

	out.EmailOptions.Server = stringOr(c.EmailOptions.Server, DefaultEmailServer)
	out.EmailOptions.Port = intOr(c.EmailOptions.Port, DefaultEmailPort)
	out.EmailOptions.Timeout = intOr(c.EmailOptions.Timeout, DefaultEmailTimeout)

	if c.Admins == nil {
		out.Admins = []Admin{}
	}
	if c.ExemptViewPermissions == nil {
		out.ExemptViewPermissions = []string{}
	}

	out.NapalmTimeout = intOr(c.NapalmTimeout, DefaultNapalmTimeout)
	out.SuperuserUsername = stringOr(c.SuperuserUsername, DefaultSuperuserName)
	out.SuperuserEmail = stringOr(c.SuperuserEmail, DefaultSuperuserEmail)

	out.Version = stringOr(c.Version, DefaultVersion)
	out.DownloadURL = stringOr(c.DownloadURL, fmt.Sprintf(DownloadURLFormat, out.Version))
	out.DownloadChecksumType = stringOr(c.DownloadChecksumType, DefaultChecksumType)
	out.DownloadTmpDir = stringOr(c.DownloadTmpDir, DefaultDownloadTmpDir)

	return out
}

func (e RedisEndpoint) withDefaults() RedisEndpoint {
	e.Host = stringOr(e.Host, DefaultRedisHost)
	e.Port = intOr(e.Port, DefaultRedisPort)
	e.Database = intOr(e.Database, 0)
	e.DefaultTimeout = intOr(e.DefaultTimeout, DefaultRedisTimeout)
	return e
}

// NetBoxDir is the stable symlink pointing at the installed release.
func (c DeploymentConfig) NetBoxDir() string {
	return strings.TrimSuffix(c.InstallRoot, "/") + "/netbox"
}

// ReleaseDir is where the configured version is extracted.
func (c DeploymentConfig) ReleaseDir() string {
	return strings.TrimSuffix(c.InstallRoot, "/") + "/netbox-" + c.Version
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v *int, def int) *int {
	if v == nil {
		return Int(def)
	}
	n := *v
	return &n
}
