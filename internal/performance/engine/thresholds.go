package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wesleyorama2/vuload/internal/performance/check"
	"github.com/wesleyorama2/vuload/internal/performance/config"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
)

// ThresholdResult contains the result of a threshold evaluation.
type ThresholdResult struct {
	Metric     string `json:"metric" yaml:"metric"`
	Expression string `json:"expression" yaml:"expression"`
	Passed     bool   `json:"passed" yaml:"passed"`
	Value      string `json:"value" yaml:"value"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
}

// EvaluateThresholds evaluates every configured threshold against the final
// metrics. Expressions that cannot be evaluated count as failed.
func EvaluateThresholds(t config.ThresholdsConfig, snapshot *metrics.Snapshot, checks *check.Collector) []ThresholdResult {
	var results []ThresholdResult

	for _, expr := range t.HTTPReqDuration {
		results = append(results, evaluateDuration(expr, snapshot))
	}
	for _, expr := range t.HTTPReqFailed {
		results = append(results, evaluateRate("http_req_failed", expr, snapshot.ErrorRate))
	}
	for _, expr := range t.HTTPReqs {
		results = append(results, evaluateRequests(expr, snapshot))
	}
	if len(t.Checks) > 0 {
		rate := 0.0
		if checks != nil {
			rate = checks.PassRate()
		}
		for _, expr := range t.Checks {
			results = append(results, evaluateRate("checks", expr, rate))
		}
	}

	return results
}

// evaluateDuration evaluates an expression like "p95 < 500ms".
func evaluateDuration(expr string, snapshot *metrics.Snapshot) ThresholdResult {
	result := ThresholdResult{Metric: "http_req_duration", Expression: expr}

	th, err := config.ParseThreshold(expr)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse expression: %v", err)
		return result
	}

	actual, ok := snapshot.Latency.Quantile(th.Metric)
	if !ok {
		result.Message = fmt.Sprintf("unknown metric: %s", th.Metric)
		return result
	}

	limit, err := time.ParseDuration(th.Value)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse threshold value: %v", err)
		return result
	}

	result.Value = actual.String()
	result.Passed = th.Compare(float64(actual), float64(limit))
	if !result.Passed {
		result.Message = fmt.Sprintf("%s is %s, threshold: %s %s", th.Metric, actual, th.Operator, limit)
	}
	return result
}

// evaluateRate evaluates "rate <op> <fraction>" against actual.
func evaluateRate(metric, expr string, actual float64) ThresholdResult {
	result := ThresholdResult{Metric: metric, Expression: expr}

	th, err := config.ParseThreshold(expr)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse expression: %v", err)
		return result
	}
	if th.Metric != "rate" {
		result.Message = fmt.Sprintf("%s only supports 'rate' metric, got: %s", metric, th.Metric)
		return result
	}

	limit, err := strconv.ParseFloat(th.Value, 64)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse threshold value: %v", err)
		return result
	}

	result.Value = fmt.Sprintf("%.4f", actual)
	result.Passed = th.Compare(actual, limit)
	if !result.Passed {
		result.Message = fmt.Sprintf("rate is %.4f, threshold: %s %.4f", actual, th.Operator, limit)
	}
	return result
}

// evaluateRequests evaluates "count > 1000" or "rate > 100".
func evaluateRequests(expr string, snapshot *metrics.Snapshot) ThresholdResult {
	result := ThresholdResult{Metric: "http_reqs", Expression: expr}

	th, err := config.ParseThreshold(expr)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse expression: %v", err)
		return result
	}

	limit, err := strconv.ParseFloat(th.Value, 64)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse threshold value: %v", err)
		return result
	}

	var actual float64
	switch th.Metric {
	case "count":
		actual = float64(snapshot.TotalRequests)
	case "rate":
		actual = snapshot.RPS
	default:
		result.Message = fmt.Sprintf("http_reqs only supports 'count' or 'rate' metrics, got: %s", th.Metric)
		return result
	}

	result.Value = fmt.Sprintf("%.2f", actual)
	result.Passed = th.Compare(actual, limit)
	if !result.Passed {
		result.Message = fmt.Sprintf("%s is %.2f, threshold: %s %.2f", th.Metric, actual, th.Operator, limit)
	}
	return result
}
