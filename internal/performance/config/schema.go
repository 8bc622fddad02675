// Package config provides the run configuration for vuload: static defaults,
// YAML/JSON overlays, environment overrides and validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults for a run. They reproduce the users-API load profile: 500 VUs
// for one minute against a local server, seeding five users first.
const (
	DefaultBaseURL      = "http://localhost:3000"
	DefaultVUs          = 500
	DefaultDuration     = 60 * time.Second
	DefaultTimeout      = 30 * time.Second
	DefaultGracefulStop = 30 * time.Second
	DefaultSetupUsers   = 5

	// BaseURLEnv overrides the target base URL.
	BaseURLEnv = "BASE_URL"
)

// SetupPolicy decides what a failed seed request does to the run.
type SetupPolicy string

const (
	// SetupTolerate logs failed seeds and keeps going.
	SetupTolerate SetupPolicy = "tolerate"
	// SetupStrict aborts the run before any VU starts.
	SetupStrict SetupPolicy = "strict"
)

// RunConfig is the root configuration for a run.
//
// Example YAML:
//
//	name: users-api
//	baseUrl: http://localhost:3000
//	vus: 500
//	duration: 60s
//	setup:
//	  users: 5
//	  policy: tolerate
//	thresholds:
//	  checks:
//	    - "rate > 0.99"
//
// A RunConfig is copied by value into the engine when a run starts; later
// changes to the caller's copy are not observed by the run.
type RunConfig struct {
	// Name of the run (for reporting)
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// BaseURL is the target, e.g. http://localhost:3000
	BaseURL string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`

	// VUs is the number of concurrent virtual users
	VUs int `json:"vus,omitempty" yaml:"vus,omitempty"`

	// Duration is how long VUs keep iterating
	Duration Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	// Timeout is the per-request timeout
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// ThinkTime is the pause at the end of every iteration
	ThinkTime Duration `json:"thinkTime,omitempty" yaml:"thinkTime,omitempty"`

	// RPS caps the request rate across all VUs (0 = unlimited)
	RPS float64 `json:"rps,omitempty" yaml:"rps,omitempty"`

	// GracefulStop is how long in-flight requests may run past the duration
	GracefulStop Duration `json:"gracefulStop,omitempty" yaml:"gracefulStop,omitempty"`

	HTTP       HTTPSettings     `json:"http,omitempty" yaml:"http,omitempty"`
	Setup      SetupConfig      `json:"setup,omitempty" yaml:"setup,omitempty"`
	Thresholds ThresholdsConfig `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// HTTPSettings contains connection pool and header settings.
type HTTPSettings struct {
	MaxIdleConnsPerHost int               `json:"maxIdleConnsPerHost,omitempty" yaml:"maxIdleConnsPerHost,omitempty"`
	MaxConnsPerHost     int               `json:"maxConnsPerHost,omitempty" yaml:"maxConnsPerHost,omitempty"`
	InsecureSkipVerify  bool              `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`
	UserAgent           string            `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	Headers             map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// SetupConfig controls the seeding phase.
type SetupConfig struct {
	// Users is how many users are created before the load starts
	Users int `json:"users" yaml:"users"`

	// Policy is "tolerate" or "strict"
	Policy SetupPolicy `json:"policy,omitempty" yaml:"policy,omitempty"`

	// Retries is how many times a seed request is retried on transport
	// errors and 5xx responses (0 = fire once)
	Retries int `json:"retries,omitempty" yaml:"retries,omitempty"`

	// RetryBackoff is the initial backoff interval between retries
	RetryBackoff Duration `json:"retryBackoff,omitempty" yaml:"retryBackoff,omitempty"`

	// Timeout bounds the whole setup phase
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ThresholdsConfig defines pass/fail criteria for the run.
type ThresholdsConfig struct {
	// HTTPReqDuration e.g. ["p95 < 500ms", "avg < 200ms"]
	HTTPReqDuration []string `json:"http_req_duration,omitempty" yaml:"http_req_duration,omitempty"`

	// HTTPReqFailed e.g. ["rate < 0.01"]
	HTTPReqFailed []string `json:"http_req_failed,omitempty" yaml:"http_req_failed,omitempty"`

	// HTTPReqs e.g. ["count > 1000", "rate > 100"]
	HTTPReqs []string `json:"http_reqs,omitempty" yaml:"http_reqs,omitempty"`

	// Checks e.g. ["rate > 0.99"]
	Checks []string `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// Empty reports whether no threshold is configured.
func (t ThresholdsConfig) Empty() bool {
	return len(t.HTTPReqDuration)+len(t.HTTPReqFailed)+len(t.HTTPReqs)+len(t.Checks) == 0
}

// Default returns the static run configuration.
func Default() *RunConfig {
	return &RunConfig{
		Name:         "users-api",
		BaseURL:      DefaultBaseURL,
		VUs:          DefaultVUs,
		Duration:     Duration(DefaultDuration),
		Timeout:      Duration(DefaultTimeout),
		GracefulStop: Duration(DefaultGracefulStop),
		HTTP: HTTPSettings{
			MaxIdleConnsPerHost: DefaultVUs,
			UserAgent:           "vuload/" + Version,
		},
		Setup: SetupConfig{
			Users:        DefaultSetupUsers,
			Policy:       SetupTolerate,
			RetryBackoff: Duration(250 * time.Millisecond),
			Timeout:      Duration(30 * time.Second),
		},
	}
}

// Version is reported in the default User-Agent.
var Version = "0.1.0"

// ResolveBaseURL returns $BASE_URL when set, the default target otherwise.
func ResolveBaseURL(getenv func(string) string) string {
	if getenv != nil {
		if v := strings.TrimSpace(getenv(BaseURLEnv)); v != "" {
			return v
		}
	}
	return DefaultBaseURL
}

// ApplyEnv applies environment overrides onto the configuration.
func (c *RunConfig) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		return
	}
	if v := strings.TrimSpace(getenv(BaseURLEnv)); v != "" {
		c.BaseURL = v
	}
}

// Clone returns a deep copy.
func (c *RunConfig) Clone() *RunConfig {
	out := *c
	if c.HTTP.Headers != nil {
		out.HTTP.Headers = make(map[string]string, len(c.HTTP.Headers))
		for k, v := range c.HTTP.Headers {
			out.HTTP.Headers[k] = v
		}
	}
	out.Thresholds = ThresholdsConfig{
		HTTPReqDuration: append([]string(nil), c.Thresholds.HTTPReqDuration...),
		HTTPReqFailed:   append([]string(nil), c.Thresholds.HTTPReqFailed...),
		HTTPReqs:        append([]string(nil), c.Thresholds.HTTPReqs...),
		Checks:          append([]string(nil), c.Thresholds.Checks...),
	}
	return &out
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*d = 0
		return nil
	}

	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ParseDurationString parses a duration string with support for common formats.
//
// Supported formats:
//   - Standard Go duration: "30s", "2m", "1h30m", "500ms"
//   - Seconds as integer: "30" (treated as 30 seconds)
func ParseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	var seconds int
	var rest string
	if n, _ := fmt.Sscanf(s, "%d%s", &seconds, &rest); n == 1 {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}
