package config

// Redis roles understood by NetBox
const (
	RoleCaching  = "caching"
	RoleWebhooks = "webhooks"
)

// DeploymentConfig is the full parameter set for one NetBox host.
//
// Optional numeric fields are pointers so an explicit zero can be told apart
// from an omitted value. Use WithDefaults to obtain a fully populated copy.
type DeploymentConfig struct {
	// Identity
	User        string `yaml:"user" json:"user"`
	Group       string `yaml:"group" json:"group"`
	InstallRoot string `yaml:"install_root" json:"install_root"`
	BasePath    string `yaml:"base_path" json:"base_path"`

	AllowedHosts []string `yaml:"allowed_hosts" json:"allowed_hosts"`

	// Database
	DatabaseName       string `yaml:"database_name" json:"database_name"`
	DatabaseUser       string `yaml:"database_user" json:"database_user"`
	DatabasePassword   string `yaml:"database_password" json:"database_password"`
	DatabaseHost       string `yaml:"database_host" json:"database_host"`
	DatabasePort       *int   `yaml:"database_port" json:"database_port"`
	DatabaseConnMaxAge *int   `yaml:"database_conn_max_age" json:"database_conn_max_age"`
	DatabaseEncoding   string `yaml:"database_encoding" json:"database_encoding"`
	DatabaseLocale     string `yaml:"database_locale" json:"database_locale"`

	RedisOptions map[string]RedisEndpoint `yaml:"redis_options" json:"redis_options"`
	EmailOptions EmailOptions             `yaml:"email_options" json:"email_options"`

	SecretKey string `yaml:"secret_key" json:"secret_key"`

	BannerTop    string `yaml:"banner_top" json:"banner_top"`
	BannerBottom string `yaml:"banner_bottom" json:"banner_bottom"`
	BannerLogin  string `yaml:"banner_login" json:"banner_login"`

	Admins []Admin `yaml:"admins" json:"admins"`

	// Feature flags
	Debug               bool `yaml:"debug" json:"debug"`
	EnforceGlobalUnique bool `yaml:"enforce_global_unique" json:"enforce_global_unique"`
	LoginRequired       bool `yaml:"login_required" json:"login_required"`
	MetricsEnabled      bool `yaml:"metrics_enabled" json:"metrics_enabled"`
	PreferIPv4          bool `yaml:"prefer_ipv4" json:"prefer_ipv4"`

	ExemptViewPermissions []string `yaml:"exempt_view_permissions" json:"exempt_view_permissions"`

	NapalmUsername string `yaml:"napalm_username" json:"napalm_username"`
	NapalmPassword string `yaml:"napalm_password" json:"napalm_password"`
	NapalmTimeout  *int   `yaml:"napalm_timeout" json:"napalm_timeout"`

	SuperuserUsername string `yaml:"superuser_username" json:"superuser_username"`
	SuperuserEmail    string `yaml:"superuser_email" json:"superuser_email"`

	// Optional Python packages added to local_requirements.txt
	IncludeNapalm         bool `yaml:"include_napalm" json:"include_napalm"`
	IncludeDjangoStorages bool `yaml:"include_django_storages" json:"include_django_storages"`
	IncludeLDAP           bool `yaml:"include_ldap" json:"include_ldap"`

	// Release installation
	Version              string `yaml:"version" json:"version"`
	DownloadURL          string `yaml:"download_url" json:"download_url"`
	DownloadChecksum     string `yaml:"download_checksum" json:"download_checksum"`
	DownloadChecksumType string `yaml:"download_checksum_type" json:"download_checksum_type"`
	DownloadTmpDir       string `yaml:"download_tmp_dir" json:"download_tmp_dir"`
}

// RedisEndpoint is the connection record for one redis role.
type RedisEndpoint struct {
	Host           string `yaml:"host" json:"host"`
	Port           *int   `yaml:"port" json:"port"`
	Password       string `yaml:"password" json:"password"`
	Database       *int   `yaml:"database" json:"database"`
	DefaultTimeout *int   `yaml:"default_timeout" json:"default_timeout"`
	SSL            bool   `yaml:"ssl" json:"ssl"`
}

// EmailOptions configures outbound mail.
type EmailOptions struct {
	Server    string `yaml:"server" json:"server"`
	Port      *int   `yaml:"port" json:"port"`
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"password"`
	Timeout   *int   `yaml:"timeout" json:"timeout"`
	FromEmail string `yaml:"from_email" json:"from_email"`
}

// Admin is an entry of the ADMINS setting.
type Admin struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
}

// Int returns a pointer to v, for building configs in code.
func Int(v int) *int {
	return &v
}

// IntValue dereferences p, returning 0 for nil.
func IntValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
