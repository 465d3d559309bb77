package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/sitedesk/pkg/config"
)

func TestAuthConfig_Modes(t *testing.T) {
	cases := []struct {
		name    string
		cfg     AuthConfig
		wantErr string
		enabled bool
	}{
		{name: "disabled", cfg: AuthConfig{Mode: "disabled"}},
		{name: "empty defaults to disabled", cfg: AuthConfig{}},
		{name: "token", cfg: AuthConfig{Mode: "token", Token: "mysecret"}, enabled: true},
		{name: "token without value", cfg: AuthConfig{Mode: "token"}, wantErr: "token is empty"},
		{name: "unknown mode", cfg: AuthConfig{Mode: "magic", Token: "x"}, wantErr: "mode"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), c.wantErr) {
					t.Fatalf("err = %v, want it to mention %q", err, c.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.cfg.Mode == "" {
				t.Error("mode was not defaulted")
			}
			if c.cfg.AuthEnabled() != c.enabled {
				t.Errorf("AuthEnabled = %v, want %v", c.cfg.AuthEnabled(), c.enabled)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if !cfg.Data.AutoRepair {
		t.Error("auto repair should default to on")
	}
	if got := cfg.App.HTTP.Address(); got != "127.0.0.1:8080" {
		t.Errorf("address = %q", got)
	}
}

func TestConfig_LogFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log format should fail")
	}
	cfg.App.LogFormat = LogFormatJSON
	if err := cfg.Validate(); err != nil {
		t.Errorf("json format: %v", err)
	}
}

func TestConfig_LoadYAMLOverDefaults(t *testing.T) {
	t.Setenv("SITEDESK_TEST_TOKEN", "s3cret")
	p := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "app:\n  log_level: debug\n  http:\n    port: 9090\ndata:\n  auto_repair: false\nauth:\n  mode: token\n  token: ${SITEDESK_TEST_TOKEN}\n"
	if err := os.WriteFile(p, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(p, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.HTTP.Host != "127.0.0.1" {
		t.Errorf("http = %+v", cfg.App.HTTP)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.Data.AutoRepair {
		t.Error("auto_repair: false was ignored")
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("token = %q, want env expansion", cfg.Auth.Token)
	}
}

func TestSQLiteConfig_ResolvePath(t *testing.T) {
	want := filepath.Join(t.TempDir(), "nested", "index.db")
	c := SQLiteConfig{Path: want}
	got, err := c.ResolvePath()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Dir(want)); err != nil {
		t.Errorf("parent dir not created: %v", err)
	}

	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	c = SQLiteConfig{}
	got, err = c.ResolvePath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "index.db" || filepath.Base(filepath.Dir(got)) != "sitedesk" {
		t.Errorf("default path = %q", got)
	}
}
