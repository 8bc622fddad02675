package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDurationString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "standard seconds", input: "30s", expected: 30 * time.Second},
		{name: "standard minutes", input: "2m", expected: 2 * time.Minute},
		{name: "milliseconds", input: "500ms", expected: 500 * time.Millisecond},
		{name: "combined duration", input: "1h30m", expected: 90 * time.Minute},
		{name: "integer as seconds", input: "60", expected: 60 * time.Second},
		{name: "empty string", input: "", expected: 0},
		{name: "invalid format", input: "abc", wantErr: true},
		{name: "trailing garbage", input: "30x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDurationString() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.expected {
				t.Errorf("ParseDurationString() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BaseURL != "http://localhost:3000" {
		t.Errorf("BaseURL = %q, want http://localhost:3000", cfg.BaseURL)
	}
	if cfg.VUs != 500 {
		t.Errorf("VUs = %d, want 500", cfg.VUs)
	}
	if cfg.Duration.Std() != time.Minute {
		t.Errorf("Duration = %v, want 1m", cfg.Duration)
	}
	if cfg.Setup.Users != 5 {
		t.Errorf("Setup.Users = %d, want 5", cfg.Setup.Users)
	}
	if cfg.Setup.Policy != SetupTolerate {
		t.Errorf("Setup.Policy = %q, want tolerate", cfg.Setup.Policy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unset", env: nil, want: DefaultBaseURL},
		{name: "empty", env: map[string]string{"BASE_URL": ""}, want: DefaultBaseURL},
		{name: "whitespace", env: map[string]string{"BASE_URL": "  "}, want: DefaultBaseURL},
		{name: "set", env: map[string]string{"BASE_URL": "http://api.internal:8080"}, want: "http://api.internal:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			if got := ResolveBaseURL(getenv); got != tt.want {
				t.Errorf("ResolveBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := ResolveBaseURL(nil); got != DefaultBaseURL {
		t.Errorf("ResolveBaseURL(nil) = %q, want default", got)
	}
}

func TestParseConfig_YAML(t *testing.T) {
	yamlConfig := `
name: smoke
baseUrl: "http://staging:3000"
vus: 10
duration: 5s
thinkTime: 100ms
setup:
  users: 2
  policy: strict
  retries: 3
thresholds:
  http_req_duration:
    - "p95 < 500ms"
  checks:
    - "rate > 0.99"
`

	cfg, err := ParseConfig([]byte(yamlConfig), "run.yaml")
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if cfg.Name != "smoke" {
		t.Errorf("Name = %q, want smoke", cfg.Name)
	}
	if cfg.BaseURL != "http://staging:3000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.VUs != 10 {
		t.Errorf("VUs = %d, want 10", cfg.VUs)
	}
	if cfg.Duration.Std() != 5*time.Second {
		t.Errorf("Duration = %v, want 5s", cfg.Duration)
	}
	if cfg.ThinkTime.Std() != 100*time.Millisecond {
		t.Errorf("ThinkTime = %v, want 100ms", cfg.ThinkTime)
	}
	if cfg.Setup.Users != 2 || cfg.Setup.Policy != SetupStrict || cfg.Setup.Retries != 3 {
		t.Errorf("Setup = %+v", cfg.Setup)
	}
	if len(cfg.Thresholds.HTTPReqDuration) != 1 || len(cfg.Thresholds.Checks) != 1 {
		t.Errorf("Thresholds = %+v", cfg.Thresholds)
	}

	// Untouched fields keep their defaults.
	if cfg.Timeout.Std() != DefaultTimeout {
		t.Errorf("Timeout = %v, want default %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.Setup.RetryBackoff.Std() != 250*time.Millisecond {
		t.Errorf("Setup.RetryBackoff = %v, want 250ms", cfg.Setup.RetryBackoff)
	}
}

func TestParseConfig_JSON(t *testing.T) {
	jsonConfig := `{
		"baseUrl": "https://api.example.com",
		"vus": 50,
		"duration": 30,
		"rps": 200.5,
		"http": {"headers": {"X-Run": "ci"}}
	}`

	cfg, err := ParseConfig([]byte(jsonConfig), "run.json")
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if cfg.VUs != 50 {
		t.Errorf("VUs = %d, want 50", cfg.VUs)
	}
	if cfg.Duration.Std() != 30*time.Second {
		t.Errorf("Duration = %v, want 30s", cfg.Duration)
	}
	if cfg.RPS != 200.5 {
		t.Errorf("RPS = %v, want 200.5", cfg.RPS)
	}
	if cfg.HTTP.Headers["X-Run"] != "ci" {
		t.Errorf("Headers = %v", cfg.HTTP.Headers)
	}
	if cfg.HTTP.MaxIdleConnsPerHost != DefaultVUs {
		t.Errorf("MaxIdleConnsPerHost = %d, want default", cfg.HTTP.MaxIdleConnsPerHost)
	}
}

func TestParseConfig_SchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		path string
	}{
		{name: "unknown key", data: "durration: 10s\n", path: "a.yaml"},
		{name: "vus zero", data: "vus: 0\n", path: "a.yaml"},
		{name: "vus as string", data: `{"vus": "many"}`, path: "a.json"},
		{name: "bad policy", data: "setup:\n  policy: ignore\n", path: "a.yml"},
		{name: "threshold not list", data: "thresholds:\n  checks: \"rate > 0.9\"\n", path: "a.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data), tt.path); err == nil {
				t.Error("expected schema error")
			}
		})
	}
}

func TestParseConfig_Malformed(t *testing.T) {
	if _, err := ParseConfig([]byte("{not json"), "x.json"); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := ParseConfig([]byte("vus: [1, 2"), "x.yaml"); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestParseConfig_EmptyDocument(t *testing.T) {
	cfg, err := ParseConfig([]byte(""), "empty.yaml")
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.VUs != DefaultVUs {
		t.Errorf("VUs = %d, want default", cfg.VUs)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte("baseUrl: http://from-file:1\nvus: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("file only", func(t *testing.T) {
		cfg, err := Load(path, func(string) string { return "" })
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.BaseURL != "http://from-file:1" || cfg.VUs != 3 {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("env beats file", func(t *testing.T) {
		env := map[string]string{"BASE_URL": "http://from-env:2"}
		cfg, err := Load(path, func(k string) string { return env[k] })
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.BaseURL != "http://from-env:2" {
			t.Errorf("BaseURL = %q, want env value", cfg.BaseURL)
		}
	})

	t.Run("no file", func(t *testing.T) {
		cfg, err := Load("", nil)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.BaseURL != DefaultBaseURL {
			t.Errorf("BaseURL = %q, want default", cfg.BaseURL)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "nope.yaml"), nil); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestClone(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Headers = map[string]string{"A": "1"}
	cfg.Thresholds.Checks = []string{"rate > 0.9"}

	c := cfg.Clone()
	c.HTTP.Headers["A"] = "2"
	c.Thresholds.Checks[0] = "rate > 0.5"
	c.VUs = 1

	if cfg.HTTP.Headers["A"] != "1" {
		t.Error("Clone shares headers map")
	}
	if cfg.Thresholds.Checks[0] != "rate > 0.9" {
		t.Error("Clone shares thresholds slice")
	}
	if cfg.VUs != DefaultVUs {
		t.Error("Clone shares scalar fields")
	}
}
