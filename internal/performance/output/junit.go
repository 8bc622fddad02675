package output

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/wesleyorama2/vuload/internal/performance/engine"
)

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Time       string          `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr,omitempty"`
	Properties []junitProperty `xml:"properties>property,omitempty"`
	Cases      []junitTestCase `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

// WriteJUnit renders the summary as JUnit XML: one testcase per check and
// one per threshold.
func WriteJUnit(w io.Writer, s *engine.Summary) error {
	seconds := fmt.Sprintf("%.3f", s.Duration.Seconds())

	suite := junitTestSuite{
		Name:      s.Name,
		Time:      seconds,
		Timestamp: s.StartTime.UTC().Format("2006-01-02T15:04:05"),
		Properties: []junitProperty{
			{Name: "runId", Value: s.RunID},
			{Name: "baseUrl", Value: s.BaseURL},
			{Name: "vus", Value: fmt.Sprintf("%d", s.VUs)},
		},
	}

	for _, res := range s.Checks {
		tc := junitTestCase{Name: res.Name, Classname: "checks", Time: seconds}
		if res.Fails > 0 {
			tc.Failure = &junitFailure{
				Message: fmt.Sprintf("%d of %d checks failed", res.Fails, res.Total()),
				Type:    "CheckFailure",
				Text:    fmt.Sprintf("pass rate %.4f", res.Rate()),
			}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	for _, t := range s.Thresholds {
		tc := junitTestCase{Name: t.Metric + " " + t.Expression, Classname: "thresholds", Time: "0.000"}
		if !t.Passed {
			tc.Failure = &junitFailure{
				Message: t.Message,
				Type:    "ThresholdFailure",
				Text:    fmt.Sprintf("actual: %s", t.Value),
			}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	suite.Tests = len(suite.Cases)
	for _, tc := range suite.Cases {
		if tc.Failure != nil {
			suite.Failures++
		}
	}

	doc := junitTestSuites{
		Name:     "vuload",
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Time:     seconds,
		Suites:   []junitTestSuite{suite},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode junit: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
