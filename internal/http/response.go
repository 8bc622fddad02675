package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// TimingInfo contains the phases of a single request.
type TimingInfo struct {
	StartTime           time.Time
	DNSLookupTime       time.Duration
	TCPConnectTime      time.Duration
	TLSHandshakeTime    time.Duration
	TimeToFirstByte     time.Duration
	ContentTransferTime time.Duration
	TotalTime           time.Duration
	ConnReused          bool
}

// Response represents an HTTP response with its body already read.
//
// A Response with StatusCode 0 stands for a request that never got an answer
// (connection refused, timeout, ...); Error then holds the cause.
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Timing     TimingInfo
	Error      error
}

// ErrorResponse wraps a transport error into a status-0 response.
func ErrorResponse(err error, elapsed time.Duration) *Response {
	return &Response{
		Error:  err,
		Timing: TimingInfo{TotalTime: elapsed},
	}
}

// BodyString returns the response body as a string
func (r *Response) BodyString() string {
	return string(r.Body)
}

// JSON unmarshals the response body into v
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// GetHeader returns the value of the specified header
func (r *Response) GetHeader(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsServerError returns true if the response status code is in the 5xx range
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// Failed reports whether the request counts as failed in the metrics:
// no response at all, or a 4xx/5xx status.
func (r *Response) Failed() bool {
	return r.Error != nil || r.StatusCode == 0 || r.StatusCode >= 400
}

// Duration returns the total request time.
func (r *Response) Duration() time.Duration {
	return r.Timing.TotalTime
}
