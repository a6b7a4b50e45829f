package testutil

import (
	"net/url"
	"testing"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "")
	t.Setenv("TEST_DB_PORT", "")
	t.Setenv("TEST_DB_USER", "")
	t.Setenv("TEST_DB_PASSWORD", "")
	t.Setenv("TEST_DB_NAME", "")

	cfg := DefaultTestDBConfig()
	if cfg.Host != "localhost" || cfg.Port != "55432" || cfg.User != "demobank" || cfg.DBName != "demobank" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	t.Setenv("TEST_DB_PORT", "5432")
	t.Setenv("TEST_DB_NAME", "ci")
	cfg = DefaultTestDBConfig()
	if cfg.Port != "5432" || cfg.DBName != "ci" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestTestDBConfigDSN(t *testing.T) {
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "bank", SSLMode: "disable"}

	u, err := url.Parse(cfg.DSN("t_abc,public"))
	if err != nil {
		t.Fatalf("parse DSN: %v", err)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" {
		t.Errorf("password = %q, want p@ss", pw)
	}
	if got := u.Query().Get("search_path"); got != "t_abc,public" {
		t.Errorf("search_path = %q", got)
	}
	if got := u.Query().Get("sslmode"); got != "disable" {
		t.Errorf("sslmode = %q", got)
	}
	if u, _ := url.Parse(cfg.DSN("")); u.Query().Has("search_path") {
		t.Error("search_path should be omitted when empty")
	}
}

func TestSchemaName(t *testing.T) {
	a, b := schemaName(), schemaName()
	if len(a) != len("t_")+8 {
		t.Fatalf("schemaName() = %q, want t_ plus 8 hex chars", a)
	}
	if a == b {
		t.Fatalf("schemaName returned duplicate %q", a)
	}
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", "y"} {
		t.Setenv("TESTUTIL_FLAG", v)
		if !envBool("TESTUTIL_FLAG") {
			t.Errorf("envBool(%q) = false", v)
		}
	}
	t.Setenv("TESTUTIL_FLAG", "no")
	if envBool("TESTUTIL_FLAG") {
		t.Error("envBool(no) = true")
	}
}
