package config

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
http:
  listen_addr: "127.0.0.1:9000"
  trusted_proxies: ["10.0.0.0/8", "127.0.0.1"]
  write_timeout: 30s
database:
  driver: mysql
  dsn: "lead:%s@tcp(db:3306)/leads"
  password: "vault:secret/leadsite#db_password"
notify:
  email_to: ["leads@example.com"]
`

func writeRoot(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(body), 0o644))
	t.Setenv("LEADSITE_ROOT", root)
	return root
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	if v, ok := f[ref]; ok {
		return v, nil
	}
	return "", errors.New("no such secret")
}

func stubVault(t *testing.T, r SecretResolver) *int {
	t.Helper()
	calls := 0
	prev := newResolver
	newResolver = func(context.Context) (SecretResolver, error) {
		calls++
		return r, nil
	}
	t.Cleanup(func() { newResolver = prev })
	return &calls
}

func TestLoad_YAMLEnvVaultDefaults(t *testing.T) {
	root := writeRoot(t, sampleYAML)
	stubVault(t, fakeResolver{"vault:secret/leadsite#db_password": "pw"})
	t.Setenv("LEADSITE_STORAGE__BACKEND", "redis")
	t.Setenv("LEADSITE_STORAGE__REDIS_ADDR", "cache:6379")
	t.Setenv("LEADSITE_RATELIMIT__WINDOW", "10m")
	t.Setenv("LEADSITE_HTTP__IDLE_TIMEOUT", "2m")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Paths.Root)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.ListenAddr)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.HTTP.TrustedProxies)
	assert.Equal(t, "lead:pw@tcp(db:3306)/leads", cfg.Database.ConnString())
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "cache:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 3, cfg.RateLimit.Max)
	assert.Equal(t, int64(64<<10), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, 2*time.Minute, cfg.HTTP.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadHeaderTimeout)
	assert.Same(t, cfg, Get())
}

func TestLoad_NoVaultRefsSkipsVault(t *testing.T) {
	writeRoot(t, "database:\n  dsn: \"postgres://localhost/leads\"\n")
	calls := stubVault(t, fakeResolver{})

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, *calls)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/leads", cfg.Database.ConnString())
}

func TestLoad_Failures(t *testing.T) {
	cases := map[string]string{
		"missing dsn":        "http:\n  listen_addr: \":8080\"\n",
		"bad driver":         "database:\n  driver: oracle\n  dsn: x\n",
		"redis without addr": "database:\n  dsn: x\nstorage:\n  backend: redis\n",
		"bad proxy":          "database:\n  dsn: x\nhttp:\n  trusted_proxies: [\"not-an-ip\"]\n",
		"bad email":          "database:\n  dsn: x\nnotify:\n  email_to: [\"nope\"]\n",
		"unknown secret":     "database:\n  dsn: x\n  password: \"vault:secret/x#y\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			writeRoot(t, body)
			stubVault(t, fakeResolver{})
			_, err := Load(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "http.listen_addr", envKey("LEADSITE_HTTP__LISTEN_ADDR"))
	assert.Equal(t, "storage.redis_db", envKey("LEADSITE_STORAGE__REDIS_DB"))
}

func TestLoad_RelativePathsAnchoredAtRoot(t *testing.T) {
	root := writeRoot(t, "database:\n  dsn: x\nforms:\n  dir: conf/forms\ngeo:\n  db_path: /var/lib/geo.mmdb\n")
	stubVault(t, fakeResolver{})

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "conf", "forms"), cfg.Forms.Dir)
	assert.Equal(t, "/var/lib/geo.mmdb", cfg.Geo.DBPath)
}

func TestDatabase_ConnStringEscapesURLPassword(t *testing.T) {
	const pw = "p@ss/w%rd"

	d := Database{DSN: "postgres://lead:%s@db:5432/leads?sslmode=disable", Password: pw}
	got := d.ConnString()
	assert.Equal(t, "postgres://lead:p%40ss%2Fw%25rd@db:5432/leads?sslmode=disable", got)

	u, err := url.Parse(got)
	require.NoError(t, err)
	back, _ := u.User.Password()
	assert.Equal(t, pw, back)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/leads", u.Path)

	d = Database{DSN: "postgres://db/leads?user=lead&password=%s", Password: "a&b=c"}
	u, err = url.Parse(d.ConnString())
	require.NoError(t, err)
	assert.Equal(t, "a&b=c", u.Query().Get("password"))
	assert.Equal(t, "lead", u.Query().Get("user"))

	d = Database{DSN: "lead:%s@tcp(db:3306)/leads", Password: pw}
	assert.Equal(t, "lead:p@ss/w%rd@tcp(db:3306)/leads", d.ConnString())
}
