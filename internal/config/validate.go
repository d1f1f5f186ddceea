package config

import (
	"fmt"
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"netboxdeploy/internal/security"

	"go.uber.org/multierr"
)

var (
	versionPattern  = regexp.MustCompile(`^[0-9]+(\.[0-9]+){1,3}(-[A-Za-z0-9.]+)?$`)
	checksumLengths = map[string]int{
		"md5":    32,
		"sha1":   40,
		"sha256": 64,
		"sha512": 128,
	}
)

// Validate checks a defaulted config against the deployment invariants.
// Every violation is reported; the result is nil or a combination of
// *ValidationError values (see Fields).
func Validate(c DeploymentConfig) error {
	var errs error
	add := func(err error) {
		errs = multierr.Append(errs, err)
	}

	if strings.TrimSpace(c.SecretKey) == "" {
		add(invalid("secret_key", "missing required value"))
	}

	if err := security.ValidateSystemName(c.User); err != nil {
		add(invalid("user", "%v", err))
	}
	if err := security.ValidateSystemName(c.Group); err != nil {
		add(invalid("group", "%v", err))
	}
	if _, err := security.SanitizePath(c.InstallRoot); err != nil {
		add(invalid("install_root", "%v", err))
	} else if strings.ContainsAny(c.InstallRoot, " \t\r\n") {
		add(invalid("install_root", "must not contain whitespace, got %q", c.InstallRoot))
	}
	if strings.ContainsAny(c.BasePath, " \t\r\n") {
		add(invalid("base_path", "must not contain whitespace, got %q", c.BasePath))
	}

	for i, host := range c.AllowedHosts {
		field := fmt.Sprintf("allowed_hosts[%d]", i)
		switch {
		case strings.TrimSpace(host) == "":
			add(invalid(field, "must not be empty"))
		case strings.Contains(host, "/"):
			if _, err := netip.ParsePrefix(host); err != nil {
				add(invalid(field, "malformed network %q", host))
			}
		}
	}

	add(required("database_name", c.DatabaseName))
	add(required("database_user", c.DatabaseUser))
	add(required("database_host", c.DatabaseHost))
	add(port("database_port", c.DatabasePort))
	add(nonNegative("database_conn_max_age", c.DatabaseConnMaxAge))

	add(validateRedis(c.RedisOptions))
	add(validateEmail(c.EmailOptions))

	for i, admin := range c.Admins {
		add(required(fmt.Sprintf("admins[%d].name", i), admin.Name))
		add(address(fmt.Sprintf("admins[%d].email", i), admin.Email, true))
	}
	for i, perm := range c.ExemptViewPermissions {
		add(required(fmt.Sprintf("exempt_view_permissions[%d]", i), strings.TrimSpace(perm)))
	}

	add(nonNegative("napalm_timeout", c.NapalmTimeout))
	add(required("superuser_username", c.SuperuserUsername))
	add(address("superuser_email", c.SuperuserEmail, true))

	add(validateRelease(c))

	return errs
}

func validateRedis(roles map[string]RedisEndpoint) error {
	var errs error
	for _, role := range []string{RoleCaching, RoleWebhooks} {
		if _, ok := roles[role]; !ok {
			errs = multierr.Append(errs, invalid("redis_options."+role, "missing required role"))
		}
	}

	names := make([]string, 0, len(roles))
	for role := range roles {
		names = append(names, role)
	}
	sort.Strings(names)

	for _, role := range names {
		prefix := "redis_options." + role
		if role != RoleCaching && role != RoleWebhooks {
			errs = multierr.Append(errs, invalid(prefix, "unknown role (expected %s or %s)", RoleCaching, RoleWebhooks))
			continue
		}
		ep := roles[role]
		errs = multierr.Append(errs, required(prefix+".host", ep.Host))
		errs = multierr.Append(errs, port(prefix+".port", ep.Port))
		errs = multierr.Append(errs, nonNegative(prefix+".database", ep.Database))
		errs = multierr.Append(errs, nonNegative(prefix+".default_timeout", ep.DefaultTimeout))
	}
	return errs
}

func validateEmail(e EmailOptions) error {
	return multierr.Combine(
		required("email_options.server", e.Server),
		port("email_options.port", e.Port),
		nonNegative("email_options.timeout", e.Timeout),
		address("email_options.from_email", e.FromEmail, false),
	)
}

func validateRelease(c DeploymentConfig) error {
	var errs error

	if !versionPattern.MatchString(c.Version) {
		errs = multierr.Append(errs, invalid("version", "malformed version %q", c.Version))
	}

	if u, err := url.Parse(c.DownloadURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		errs = multierr.Append(errs, invalid("download_url", "must be an http(s) URL, got %q", c.DownloadURL))
	}

	if _, known := checksumLengths[c.DownloadChecksumType]; !known {
		errs = multierr.Append(errs, invalid("download_checksum_type", "unsupported checksum type %q", c.DownloadChecksumType))
	}

	if _, err := security.SanitizePath(c.DownloadTmpDir); err != nil {
		errs = multierr.Append(errs, invalid("download_tmp_dir", "%v", err))
	}

	return errs
}

// Warnings reports settings that are accepted but likely wrong. A checksum
// that cannot match its type only fails once the install script runs.
func Warnings(c DeploymentConfig) []string {
	var warnings []string
	length, known := checksumLengths[c.DownloadChecksumType]
	if known && c.DownloadChecksum != "" && !isHex(c.DownloadChecksum, length) {
		warnings = append(warnings, fmt.Sprintf("download_checksum: expected %d hex characters for %s, the install will fail verification",
			length, c.DownloadChecksumType))
	}
	return warnings
}

func required(field, value string) error {
	if value == "" {
		return invalid(field, "missing required value")
	}
	return nil
}

func port(field string, p *int) error {
	if p == nil {
		return invalid(field, "missing required value")
	}
	if *p < 1 || *p > 65535 {
		return invalid(field, "port out of range (1-65535), got %d", *p)
	}
	return nil
}

func nonNegative(field string, p *int) error {
	if p == nil {
		return invalid(field, "missing required value")
	}
	if *p < 0 {
		return invalid(field, "must not be negative, got %d", *p)
	}
	return nil
}

func address(field, value string, mandatory bool) error {
	if value == "" {
		if mandatory {
			return invalid(field, "missing required value")
		}
		return nil
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return invalid(field, "malformed email address %q", value)
	}
	return nil
}

func isHex(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
