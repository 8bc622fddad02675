package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates the run configuration.
//
// Returns nil if valid, or a *ValidationErrors containing every problem found.
func (c *RunConfig) Validate() error {
	errs := &ValidationErrors{}

	validateBaseURL(c.BaseURL, errs)

	if c.VUs <= 0 {
		errs.Add("vus", "vus must be greater than 0")
	}
	if c.Duration <= 0 {
		errs.Add("duration", "duration must be greater than 0")
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "timeout cannot be negative")
	}
	if c.ThinkTime < 0 {
		errs.Add("thinkTime", "thinkTime cannot be negative")
	}
	if c.GracefulStop < 0 {
		errs.Add("gracefulStop", "gracefulStop cannot be negative")
	}
	if c.RPS < 0 {
		errs.Add("rps", "rps cannot be negative")
	}
	if c.HTTP.MaxIdleConnsPerHost < 0 {
		errs.Add("http.maxIdleConnsPerHost", "cannot be negative")
	}
	if c.HTTP.MaxConnsPerHost < 0 {
		errs.Add("http.maxConnsPerHost", "cannot be negative")
	}

	validateSetup(&c.Setup, errs)
	validateThresholds(&c.Thresholds, errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateBaseURL(raw string, errs *ValidationErrors) {
	if raw == "" {
		errs.Add("baseUrl", "baseUrl is required")
		return
	}

	u, err := url.Parse(raw)
	if err != nil {
		errs.Add("baseUrl", fmt.Sprintf("invalid URL: %v", err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add("baseUrl", fmt.Sprintf("unsupported scheme %q (use http or https)", u.Scheme))
	}
	if u.Host == "" {
		errs.Add("baseUrl", "baseUrl must include a host")
	}
}

func validateSetup(s *SetupConfig, errs *ValidationErrors) {
	if s.Users < 0 {
		errs.Add("setup.users", "users cannot be negative")
	}
	switch s.Policy {
	case SetupTolerate, SetupStrict:
	case "":
		errs.Add("setup.policy", "policy is required")
	default:
		errs.Add("setup.policy", fmt.Sprintf("unknown policy %q (use tolerate or strict)", s.Policy))
	}
	if s.Retries < 0 {
		errs.Add("setup.retries", "retries cannot be negative")
	}
	if s.RetryBackoff < 0 {
		errs.Add("setup.retryBackoff", "retryBackoff cannot be negative")
	}
	if s.Timeout < 0 {
		errs.Add("setup.timeout", "timeout cannot be negative")
	}
}

func validateThresholds(t *ThresholdsConfig, errs *ValidationErrors) {
	for i, expr := range t.HTTPReqDuration {
		validateExpression(fmt.Sprintf("thresholds.http_req_duration[%d]", i), expr, durationMetrics, true, errs)
	}
	for i, expr := range t.HTTPReqFailed {
		validateExpression(fmt.Sprintf("thresholds.http_req_failed[%d]", i), expr, rateMetrics, false, errs)
	}
	for i, expr := range t.HTTPReqs {
		validateExpression(fmt.Sprintf("thresholds.http_reqs[%d]", i), expr, countMetrics, false, errs)
	}
	for i, expr := range t.Checks {
		validateExpression(fmt.Sprintf("thresholds.checks[%d]", i), expr, rateMetrics, false, errs)
	}
}

var (
	durationMetrics = map[string]bool{"min": true, "max": true, "avg": true, "med": true, "p50": true, "p90": true, "p95": true, "p99": true}
	rateMetrics     = map[string]bool{"rate": true}
	countMetrics    = map[string]bool{"count": true, "rate": true}
)

func validateExpression(field, expr string, metrics map[string]bool, isDuration bool, errs *ValidationErrors) {
	t, err := ParseThreshold(expr)
	if err != nil {
		errs.Add(field, err.Error())
		return
	}
	if !metrics[t.Metric] {
		errs.Add(field, fmt.Sprintf("unsupported metric %q", t.Metric))
		return
	}
	if isDuration {
		if _, err := time.ParseDuration(t.Value); err != nil {
			errs.Add(field, fmt.Sprintf("invalid duration value %q", t.Value))
		}
		return
	}
	if _, err := strconv.ParseFloat(t.Value, 64); err != nil {
		errs.Add(field, fmt.Sprintf("invalid numeric value %q", t.Value))
	}
}

// Threshold is a parsed expression such as "p95 < 500ms".
type Threshold struct {
	Metric   string
	Operator string
	Value    string
}

var thresholdPattern = regexp.MustCompile(`^(\w+)\s*(<=|>=|==|!=|<>|<|>|=)\s*(.+)$`)

// ParseThreshold parses an expression like "p95 < 500ms" or "rate < 0.01".
func ParseThreshold(expr string) (Threshold, error) {
	matches := thresholdPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if len(matches) != 4 {
		return Threshold{}, fmt.Errorf("invalid threshold expression: %q", expr)
	}
	return Threshold{
		Metric:   matches[1],
		Operator: matches[2],
		Value:    strings.TrimSpace(matches[3]),
	}, nil
}

// Compare applies the operator to actual and threshold.
func (t Threshold) Compare(actual, threshold float64) bool {
	switch t.Operator {
	case "<":
		return actual < threshold
	case "<=":
		return actual <= threshold
	case ">":
		return actual > threshold
	case ">=":
		return actual >= threshold
	case "==", "=":
		return actual == threshold
	case "!=", "<>":
		return actual != threshold
	default:
		return false
	}
}
