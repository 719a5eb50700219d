package api

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Parse the XML data (JUnit reports created by arbitrary test runners)
type TestStatus string

const (
	TestStatusPass    TestStatus = "pass"
	TestStatusFail    TestStatus = "fail"
	TestStatusSkipped TestStatus = "skipped"
)

// ReportParseError is returned when a report file is not well-formed XML.
type ReportParseError struct {
	Path string
	Err  error
}

func (e *ReportParseError) Error() string {
	return fmt.Sprintf("unable to parse report %s: %v", e.Path, e.Err)
}

func (e *ReportParseError) Unwrap() error {
	return e.Err
}

type propFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

type propSkipped struct {
	Message string `xml:"message,attr"`
}

// TestCase is the raw <testcase> element.
type TestCase struct {
	Name      string       `xml:"name,attr"`
	ClassName string       `xml:"classname,attr"`
	Time      string       `xml:"time,attr"`
	Failure   *propFailure `xml:"failure"`
	Error     *propFailure `xml:"error"`
	Skipped   *propSkipped `xml:"skipped"`
	SystemOut string       `xml:"system-out"`
}

// TestSuite is the raw <testsuite> element.
type TestSuite struct {
	Name              string     `xml:"name,attr"`
	Tests             string     `xml:"tests,attr"`
	Skipped           string     `xml:"skipped,attr"`
	Failures          string     `xml:"failures,attr"`
	FailureEvaluating string     `xml:"failure-evaluating,attr"`
	Time              string     `xml:"time,attr"`
	Timestamp         string     `xml:"timestamp,attr"`
	TestCases         []TestCase `xml:"testcase"`
}

// TestSuites is the raw <testsuites> wrapper.
type TestSuites struct {
	Name      string      `xml:"name,attr"`
	TestSuite []TestSuite `xml:"testsuite"`
}

// Case is one parsed test execution record.
type Case struct {
	Name      string
	ClassName string
	Duration  float64
	// Failure holds the failure text, empty when the case did not fail.
	Failure string
	Failed  bool
	Skipped bool
	// Output is the system-out blob, which may carry a test registry URL.
	Output string
}

// Status returns the local execution status of the case.
func (c Case) Status() TestStatus {
	switch {
	case c.Failed:
		return TestStatusFail
	case c.Skipped:
		return TestStatusSkipped
	}
	return TestStatusPass
}

// Suite is an ordered collection of cases read from one report file.
type Suite struct {
	Name     string
	FileName string
	// FailedEvaluating is declared by the report itself through the
	// failure-evaluating attribute.
	FailedEvaluating int
	Cases            []Case
}

// ParseFile reads a report file from disk and returns its suites.
func ParseFile(path string) ([]*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading XML file: %w", err)
	}
	return ParseSuites(data, path)
}

// ParseSuites normalizes a JUnit document into a sequence of suites. Both a
// single <testsuite> root and a <testsuites> wrapper are accepted. A document
// without any recognizable suite element yields no suites and no error.
func ParseSuites(data []byte, path string) ([]*Suite, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			log.Debugf("No suite element found in %s", path)
			return nil, nil
		}
		if err != nil {
			return nil, &ReportParseError{Path: path, Err: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "testsuites":
			ts := TestSuites{}
			if err := dec.DecodeElement(&ts, &start); err != nil {
				return nil, &ReportParseError{Path: path, Err: err}
			}
			suites := make([]*Suite, 0, len(ts.TestSuite))
			for i := range ts.TestSuite {
				suites = append(suites, newSuite(&ts.TestSuite[i], path))
			}
			return suites, nil
		case "testsuite":
			ts := TestSuite{}
			if err := dec.DecodeElement(&ts, &start); err != nil {
				return nil, &ReportParseError{Path: path, Err: err}
			}
			return []*Suite{newSuite(&ts, path)}, nil
		default:
			log.Debugf("Unrecognized root element <%s> in %s, treating as empty", start.Name.Local, path)
			return nil, nil
		}
	}
}

func newSuite(ts *TestSuite, path string) *Suite {
	s := &Suite{
		Name:             strings.TrimSpace(ts.Name),
		FileName:         path,
		FailedEvaluating: atoi(ts.FailureEvaluating),
		Cases:            make([]Case, 0, len(ts.TestCases)),
	}
	for _, tc := range ts.TestCases {
		c := Case{
			Name:      tc.Name,
			ClassName: tc.ClassName,
			Skipped:   tc.Skipped != nil,
			Output:    strings.TrimSpace(tc.SystemOut),
		}
		c.Duration, _ = strconv.ParseFloat(strings.TrimSpace(tc.Time), 64)
		for _, f := range []*propFailure{tc.Failure, tc.Error} {
			if f == nil {
				continue
			}
			c.Failed = true
			c.Failure = f.Message
			if c.Failure == "" {
				c.Failure = strings.TrimSpace(f.Text)
			}
			break
		}
		s.Cases = append(s.Cases, c)
	}
	return s
}

func atoi(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
