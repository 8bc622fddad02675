package check

import (
	"fmt"
	"strings"
	"time"

	"github.com/wesleyorama2/vuload/internal/http"
	"github.com/wesleyorama2/vuload/pkg/jsonpath"
	"github.com/wesleyorama2/vuload/pkg/jsonschema"
)

var errNoResponse = fmt.Errorf("no response")

// Status returns the conventional "status <code>" check.
func Status(code int) Check {
	return New(fmt.Sprintf("status %d", code), StatusEquals(code))
}

// StatusEquals passes when the response status code equals code.
func StatusEquals(code int) Func {
	return func(resp *http.Response) (bool, error) {
		if resp == nil {
			return false, errNoResponse
		}
		if resp.StatusCode != code {
			if resp.Error != nil {
				return false, fmt.Errorf("status code is %d, expected %d: %v", resp.StatusCode, code, resp.Error)
			}
			return false, fmt.Errorf("status code is %d, expected %d", resp.StatusCode, code)
		}
		return true, nil
	}
}

// StatusIn passes when the response status code is one of codes.
func StatusIn(codes ...int) Func {
	return func(resp *http.Response) (bool, error) {
		if resp == nil {
			return false, errNoResponse
		}
		for _, c := range codes {
			if resp.StatusCode == c {
				return true, nil
			}
		}
		return false, fmt.Errorf("status code is %d, expected one of %v", resp.StatusCode, codes)
	}
}

// ResponseTimeBelow passes when the total request time is under max.
func ResponseTimeBelow(max time.Duration) Func {
	return func(resp *http.Response) (bool, error) {
		if resp == nil {
			return false, errNoResponse
		}
		if d := resp.Duration(); d >= max {
			return false, fmt.Errorf("response time %v is not less than %v", d, max)
		}
		return true, nil
	}
}

// HeaderEquals passes when the named header has exactly the given value.
func HeaderEquals(name, want string) Func {
	return func(resp *http.Response) (bool, error) {
		if resp == nil {
			return false, errNoResponse
		}
		if got := resp.GetHeader(name); got != want {
			return false, fmt.Errorf("header %s value is %q, expected %q", name, got, want)
		}
		return true, nil
	}
}

// BodyContains passes when the body contains substr.
func BodyContains(substr string) Func {
	return func(resp *http.Response) (bool, error) {
		if resp == nil {
			return false, errNoResponse
		}
		if !strings.Contains(resp.BodyString(), substr) {
			return false, fmt.Errorf("body does not contain %q", substr)
		}
		return true, nil
	}
}

// JSONPathEquals passes when the value at path in the JSON body equals want.
func JSONPathEquals(path, want string) Func {
	return func(resp *http.Response) (bool, error) {
		if resp == nil {
			return false, errNoResponse
		}
		got, err := jsonpath.ExtractBytes(resp.Body, path)
		if err != nil {
			return false, err
		}
		if got != want {
			return false, fmt.Errorf("%s is %q, expected %q", path, got, want)
		}
		return true, nil
	}
}

// JSONPathExists passes when path resolves in the JSON body.
func JSONPathExists(path string) Func {
	return func(resp *http.Response) (bool, error) {
		if resp == nil {
			return false, errNoResponse
		}
		if !jsonpath.Exists(string(resp.Body), path) {
			return false, fmt.Errorf("%s does not exist", path)
		}
		return true, nil
	}
}

// MatchesSchema passes when the JSON body validates against schema. The
// schema is compiled once; a schema that does not compile fails every
// evaluation with the compile error.
func MatchesSchema(schema string) Func {
	compiled, compileErr := jsonschema.Compile(schema)
	return func(resp *http.Response) (bool, error) {
		if compileErr != nil {
			return false, compileErr
		}
		if resp == nil {
			return false, errNoResponse
		}
		if err := compiled.ValidateBytes(resp.Body); err != nil {
			return false, err
		}
		return true, nil
	}
}
