// internal/config/model.go
//
// Typed configuration model for the lead site.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                            – dotenv values,
//   • `conf/global.yaml`                         – primary static file,
//   • `LEADSITE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Zero values are replaced by the defaults in `applyDefaults`, then the
// whole tree is validated; the app fails fast on a bad value.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`

	// TrustedProxies lists CIDRs or bare IPs whose X-Forwarded-* headers are
	// believed.  Empty means the direct peer is always the client.
	TrustedProxies []string `koanf:"trusted_proxies" validate:"dive,cidr|ip"`
	MaxBodyBytes   int64    `koanf:"max_body_bytes"  validate:"gte=0"`

	ReadTimeout       time.Duration `koanf:"read_timeout"        validate:"gte=0"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gte=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout"       validate:"gte=0"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"        validate:"gte=0"`
}

//
// Database section
//

// Database holds the driver, DSN template, and secret.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host, port,
// or flags without touching Vault.  When it contains a single `%s` verb the
// *secret* (`Password`, usually a `vault:` reference) is injected there.
type Database struct {
	Driver      string        `koanf:"driver"       validate:"oneof=mysql pgx postgres"`
	DSN         string        `koanf:"dsn"          validate:"required"`
	Password    string        `koanf:"password"`
	MaxOpen     int           `koanf:"max_open"     validate:"gte=0"`
	MaxIdle     int           `koanf:"max_idle"     validate:"gte=0"`
	MaxLifetime time.Duration `koanf:"max_lifetime"`
}

// pwMark stands in for the `%s` verb while a URL DSN is parsed; a bare
// `%s` is not a valid percent escape.
const pwMark = "LEADSITEPASSWORDMARK"

// ConnString returns DSN with Password substituted for its `%s` verb.  For a
// URL DSN (postgres://user:%s@host/db) the password is escaped so reserved
// characters such as '@', '/', and '%' survive.
func (d Database) ConnString() string {
	if strings.Count(d.DSN, "%s") != 1 {
		return d.DSN
	}
	if !strings.Contains(d.DSN, "://") {
		return fmt.Sprintf(d.DSN, d.Password)
	}

	u, err := url.Parse(strings.Replace(d.DSN, "%s", pwMark, 1))
	if err != nil {
		return fmt.Sprintf(d.DSN, url.QueryEscape(d.Password))
	}
	if pw, ok := u.User.Password(); ok && pw == pwMark {
		u.User = url.UserPassword(u.User.Username(), d.Password)
		return u.String()
	}
	return strings.Replace(u.String(), pwMark, url.QueryEscape(d.Password), 1)
}

//
// Storage section
//

// Storage selects the key-value backend for the rate-limit log.
type Storage struct {
	Backend       string `koanf:"backend"        validate:"oneof=memory redis"`
	RedisAddr     string `koanf:"redis_addr"     validate:"required_if=Backend redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"       validate:"gte=0"`
	KeyPrefix     string `koanf:"key_prefix"`
}

// RateLimit bounds submissions per client.
type RateLimit struct {
	Max    int           `koanf:"max"    validate:"gte=1"`
	Window time.Duration `koanf:"window" validate:"gte=1s"`
}

// Content tunes the read cache in front of the record store.
type Content struct {
	CacheTTL  time.Duration `koanf:"cache_ttl"`
	CacheSize int           `koanf:"cache_size" validate:"gte=1"`
}

// Notify configures the background email and webhook queue.
type Notify struct {
	Workers    int      `koanf:"workers"     validate:"gte=1"`
	QueueSize  int      `koanf:"queue_size"  validate:"gte=1"`
	EmailTo    []string `koanf:"email_to"    validate:"dive,email"`
	WebhookURL string   `koanf:"webhook_url" validate:"omitempty,url"`
}

// Geo points at an optional MaxMind country/city database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

// Forms points at an optional directory of YAML form definitions that
// override the built-in ones by id.
type Forms struct {
	Dir string `koanf:"dir"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // LEADSITE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Storage   Storage   `koanf:"storage"`
	RateLimit RateLimit `koanf:"ratelimit"`
	Content   Content   `koanf:"content"`
	Notify    Notify    `koanf:"notify"`
	Geo       Geo       `koanf:"geo"`
	Forms     Forms     `koanf:"forms"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}

// applyDefaults fills every zero-valued tunable.
func applyDefaults(c *Config) {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = 64 << 10
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = 5 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "pgx"
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 10
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Database.MaxLifetime == 0 {
		c.Database.MaxLifetime = 30 * time.Minute
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = 3
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	if c.Content.CacheTTL == 0 {
		c.Content.CacheTTL = 5 * time.Minute
	}
	if c.Content.CacheSize == 0 {
		c.Content.CacheSize = 256
	}
	if c.Notify.Workers == 0 {
		c.Notify.Workers = 2
	}
	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = 64
	}
}
