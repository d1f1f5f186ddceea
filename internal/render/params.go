package render

import (
	"sort"
	"strings"

	"netboxdeploy/internal/config"
)

// redisKeys maps deployment roles to the keys of NetBox's REDIS setting.
var redisKeys = map[string]string{
	config.RoleCaching:  "caching",
	config.RoleWebhooks: "tasks",
}

// DatabaseParams is the database connection parameter set.
type DatabaseParams struct {
	Name       string `json:"name"`
	User       string `json:"user"`
	Password   string `json:"password"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	ConnMaxAge int    `json:"conn_max_age"`
	Encoding   string `json:"encoding"`
	Locale     string `json:"locale"`
}

// RedisParams is the endpoint of one redis role.
type RedisParams struct {
	Role           string `json:"role"`
	Key            string `json:"key"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Password       string `json:"password"`
	Database       int    `json:"database"`
	DefaultTimeout int    `json:"default_timeout"`
	SSL            bool   `json:"ssl"`
}

type EmailParams struct {
	Server    string `json:"server"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Timeout   int    `json:"timeout"`
	FromEmail string `json:"from_email"`
}

type SecurityParams struct {
	SecretKey             string         `json:"secret_key"`
	AllowedHosts          []string       `json:"allowed_hosts"`
	Admins                []config.Admin `json:"admins"`
	ExemptViewPermissions []string       `json:"exempt_view_permissions"`
}

type BannerParams struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
	Login  string `json:"login"`
}

type FeatureParams struct {
	Debug               bool `json:"debug"`
	EnforceGlobalUnique bool `json:"enforce_global_unique"`
	LoginRequired       bool `json:"login_required"`
	MetricsEnabled      bool `json:"metrics_enabled"`
	PreferIPv4          bool `json:"prefer_ipv4"`
}

type NapalmParams struct {
	Username string
	Password string
	Timeout  int
}

// Params is everything the configuration template needs.
type Params struct {
	Database         DatabaseParams
	Redis            []RedisParams
	Email            EmailParams
	Security         SecurityParams
	Banners          BannerParams
	Features         FeatureParams
	Napalm           NapalmParams
	BasePath         string
	RQDefaultTimeout int
}

// NewParams splits a defaulted config into its parameter sets.
func NewParams(c config.DeploymentConfig) Params {
	p := Params{
		Database: DatabaseParams{
			Name:       c.DatabaseName,
			User:       c.DatabaseUser,
			Password:   c.DatabasePassword,
			Host:       c.DatabaseHost,
			Port:       config.IntValue(c.DatabasePort),
			ConnMaxAge: config.IntValue(c.DatabaseConnMaxAge),
			Encoding:   c.DatabaseEncoding,
			Locale:     c.DatabaseLocale,
		},
		Email: EmailParams{
			Server:    c.EmailOptions.Server,
			Port:      config.IntValue(c.EmailOptions.Port),
			Username:  c.EmailOptions.Username,
			Password:  c.EmailOptions.Password,
			Timeout:   config.IntValue(c.EmailOptions.Timeout),
			FromEmail: c.EmailOptions.FromEmail,
		},
		Security: SecurityParams{
			SecretKey:             c.SecretKey,
			AllowedHosts:          c.AllowedHosts,
			Admins:                c.Admins,
			ExemptViewPermissions: c.ExemptViewPermissions,
		},
		Banners: BannerParams{
			Top:    c.BannerTop,
			Bottom: c.BannerBottom,
			Login:  c.BannerLogin,
		},
		Features: FeatureParams{
			Debug:               c.Debug,
			EnforceGlobalUnique: c.EnforceGlobalUnique,
			LoginRequired:       c.LoginRequired,
			MetricsEnabled:      c.MetricsEnabled,
			PreferIPv4:          c.PreferIPv4,
		},
		Napalm: NapalmParams{
			Username: c.NapalmUsername,
			Password: c.NapalmPassword,
			Timeout:  config.IntValue(c.NapalmTimeout),
		},
		BasePath: strings.Trim(c.BasePath, "/"),
	}

	roles := make([]string, 0, len(c.RedisOptions))
	for role := range c.RedisOptions {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	for _, role := range roles {
		ep := c.RedisOptions[role]
		p.Redis = append(p.Redis, RedisParams{
			Role:           role,
			Key:            redisKeys[role],
			Host:           ep.Host,
			Port:           config.IntValue(ep.Port),
			Password:       ep.Password,
			Database:       config.IntValue(ep.Database),
			DefaultTimeout: config.IntValue(ep.DefaultTimeout),
			SSL:            ep.SSL,
		})
		if role == config.RoleWebhooks {
			p.RQDefaultTimeout = config.IntValue(ep.DefaultTimeout)
		}
	}

	return p
}

// localPackages lists the optional Python packages for local_requirements.txt.
func localPackages(c config.DeploymentConfig) []string {
	packages := []string{}
	if c.IncludeNapalm {
		packages = append(packages, "napalm")
	}
	if c.IncludeDjangoStorages {
		packages = append(packages, "django-storages")
	}
	if c.IncludeLDAP {
		packages = append(packages, "django-auth-ldap")
	}
	return packages
}
