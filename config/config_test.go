package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"

	domainauth "github.com/target/demobank-api/internal/domain/auth"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - reaper",
			input:    "reaper",
			expected: map[ServiceMode]bool{ServiceModeReaper: true},
		},
		{
			name:  "services with spaces",
			input: " http , reaper ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeReaper: true,
			},
		},
		{
			name:     "duplicate services",
			input:    "http,http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,",
			expectError: true,
		},
		{
			name:        "unknown service",
			input:       "http,scheduler",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	cfg := AppConfig{Services: "http"}
	if !cfg.IsHTTPServerEnabled() {
		t.Error("expected http to be enabled")
	}
	if cfg.IsReaperEnabled() {
		t.Error("expected reaper to be disabled")
	}

	cfg.Services = "bogus"
	if cfg.IsHTTPServerEnabled() || cfg.IsReaperEnabled() {
		t.Error("invalid services must enable nothing")
	}
}

func TestValidServiceModes(t *testing.T) {
	expected := []ServiceMode{ServiceModeHTTP, ServiceModeReaper}
	if got := ValidServiceModes(); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.Sanitize()

	if cfg.HTTP.Addr != ":4000" {
		t.Errorf("expected default addr :4000, got %q", cfg.HTTP.Addr)
	}
	if cfg.Session.Storage != StorageRedis {
		t.Errorf("expected redis storage, got %q", cfg.Session.Storage)
	}
	if cfg.Session.SnapshotKey != "user" {
		t.Errorf("expected snapshot key user, got %q", cfg.Session.SnapshotKey)
	}
	if cfg.Session.ErrorTTL != 5*time.Second {
		t.Errorf("expected 5s error ttl, got %v", cfg.Session.ErrorTTL)
	}
	if cfg.Auth.SignInLatency != time.Second || cfg.Auth.SignOutLatency != 500*time.Millisecond {
		t.Errorf("unexpected latencies: %v / %v", cfg.Auth.SignInLatency, cfg.Auth.SignOutLatency)
	}
	if cfg.Notifications.DefaultDuration != 5*time.Second || cfg.Notifications.ErrorDuration != 7*time.Second {
		t.Errorf("unexpected notification durations: %+v", cfg.Notifications)
	}
	if cfg.Accounts.DefaultLimit != 20 || cfg.Accounts.MaxLimit != 100 {
		t.Errorf("unexpected accounts limits: %+v", cfg.Accounts)
	}
	users, err := cfg.Auth.Credentials()
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if !reflect.DeepEqual(users, domainauth.DefaultCredentials()) {
		t.Errorf("expected built-in demo users, got %+v", users)
	}
	if !cfg.IsHTTPServerEnabled() || !cfg.IsReaperEnabled() {
		t.Error("expected http and reaper enabled by default")
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("HTTP_CORS_ALLOWED_ORIGINS", " https://bank.example/ ,,http://localhost:5173")
	t.Setenv("SESSION_STORAGE", "Memory")
	t.Setenv("SESSION_COOKIE_SECRET", strings.Repeat("s", 32))
	t.Setenv("SESSION_LOGIN_RATE", "0.5")
	t.Setenv("DEMO_USERS", "7|ops@bank.com|hunter22|Ops User; 8|qa@bank.com|qa1234|QA User")
	t.Setenv("ACCOUNTS_BREAKER_FAILURE_THRESHOLD", "3")
	t.Setenv("ACCOUNTS_BREAKER_TIMEOUT", "10s")
	t.Setenv("DB_NAME", "bank_test")
	t.Setenv("REDIS_USE_CLUSTER", "true")
	t.Setenv("REDIS_CLUSTER_NODES", "r1:6379,r2:6379")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.Sanitize()

	if cfg.HTTP.Addr != ":9000" {
		t.Errorf("addr: got %q", cfg.HTTP.Addr)
	}
	wantOrigins := []string{"https://bank.example", "http://localhost:5173"}
	if !reflect.DeepEqual(cfg.HTTP.CORSAllowedOrigins, wantOrigins) {
		t.Errorf("origins: got %v", cfg.HTTP.CORSAllowedOrigins)
	}
	if cfg.Session.Storage != StorageMemory {
		t.Errorf("storage: got %q", cfg.Session.Storage)
	}
	if cfg.Session.LoginRate != 0.5 {
		t.Errorf("login rate: got %v", cfg.Session.LoginRate)
	}
	users, err := cfg.Auth.Credentials()
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if len(users) != 2 || users[0].Username != "ops@bank.com" || users[1].ID != 8 {
		t.Errorf("demo users: got %+v", users)
	}
	if cfg.Accounts.Breaker.FailureThreshold != 3 || cfg.Accounts.Breaker.Timeout != 10*time.Second {
		t.Errorf("breaker: got %+v", cfg.Accounts.Breaker)
	}
	if cfg.Postgres.Name != "bank_test" {
		t.Errorf("db name: got %q", cfg.Postgres.Name)
	}
	if !cfg.Redis.UseCluster || len(cfg.Redis.ClusterNodes) != 2 {
		t.Errorf("redis cluster: got %+v", cfg.Redis)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestAppConfig_InvalidStorage(t *testing.T) {
	t.Setenv("SESSION_STORAGE", "etcd")
	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestParseDemoUsers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr string
	}{
		{name: "single", input: "1|a@b.com|secret1|A", wantLen: 1},
		{name: "trailing separator", input: "1|a@b.com|secret1|A;", wantLen: 1},
		{name: "wrong field count", input: "1|a@b.com|secret1", wantErr: "expected id|username|password|name"},
		{name: "bad id", input: "x|a@b.com|secret1|A", wantErr: "invalid demo user id"},
		{name: "zero id", input: "0|a@b.com|secret1|A", wantErr: "invalid demo user id"},
		{name: "empty name", input: "1|a@b.com|secret1| ", wantErr: "are required"},
		{name: "duplicate", input: "1|a@b.com|x123456|A;2|a@b.com|y123456|B", wantErr: "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDemoUsers(tt.input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(d) != tt.wantLen {
				t.Errorf("expected %d users, got %d", tt.wantLen, len(d))
			}
		})
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AppConfig
		wantErr string
	}{
		{
			name:    "production without secret",
			cfg:     AppConfig{Services: "http"},
			wantErr: "SESSION_COOKIE_SECRET is required",
		},
		{
			name:    "production with short secret",
			cfg:     AppConfig{Services: "http", Session: SessionConfig{CookieSecret: "short"}},
			wantErr: "at least 32 bytes",
		},
		{
			name: "dev without secret",
			cfg:  AppConfig{Services: "http", IsDev: true},
		},
		{
			name: "production with secret",
			cfg:  AppConfig{Services: "http", Session: SessionConfig{CookieSecret: strings.Repeat("k", 64)}},
		},
		{
			name:    "bad demo users",
			cfg:     AppConfig{Services: "http", IsDev: true, Auth: AuthConfig{DemoUsers: "1|a@b.com"}},
			wantErr: "invalid demo user",
		},
		{
			name:    "empty demo users",
			cfg:     AppConfig{Services: "http", IsDev: true, Auth: AuthConfig{DemoUsers: " ; "}},
			wantErr: "no users",
		},
		{
			name:    "bad services",
			cfg:     AppConfig{Services: "nope", IsDev: true},
			wantErr: "invalid service name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Fatal("expected NODE_ENV=development to enable dev mode")
	}
}

func TestSessionConfig_Sanitize(t *testing.T) {
	cfg := SessionConfig{
		CookieName:     "  ",
		SnapshotTTL:    -time.Second,
		ErrorTTL:       -time.Second,
		IdleTTL:        time.Second,
		ReaperInterval: 0,
		LoginRate:      -1,
		LoginBurst:     0,
	}
	cfg.Sanitize()

	if cfg.CookieName != "demobank_client" {
		t.Errorf("cookie name: got %q", cfg.CookieName)
	}
	if cfg.Storage != StorageRedis {
		t.Errorf("storage: got %q", cfg.Storage)
	}
	if cfg.SnapshotTTL != 0 || cfg.ErrorTTL != 0 {
		t.Errorf("negative ttls must clamp to zero: %v %v", cfg.SnapshotTTL, cfg.ErrorTTL)
	}
	if cfg.IdleTTL != time.Minute || cfg.ReaperInterval != time.Second {
		t.Errorf("reaper bounds: idle %v interval %v", cfg.IdleTTL, cfg.ReaperInterval)
	}
	if cfg.LoginRate != 0 || cfg.LoginBurst != 1 {
		t.Errorf("login throttle: rate %v burst %d", cfg.LoginRate, cfg.LoginBurst)
	}
}

func TestAccountsConfig_Sanitize(t *testing.T) {
	cfg := AccountsConfig{DefaultLimit: 500, MaxLimit: 50}
	cfg.Sanitize()
	if cfg.DefaultLimit != 50 {
		t.Errorf("default limit must not exceed max, got %d", cfg.DefaultLimit)
	}
	if cfg.Breaker.FailureThreshold != 1 || cfg.Breaker.MaxRequests != 1 || cfg.Breaker.Timeout != time.Second {
		t.Errorf("breaker floors not applied: %+v", cfg.Breaker)
	}
}
