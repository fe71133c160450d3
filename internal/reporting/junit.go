package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/plugvet/plugvet/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one platform.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one task execution on the suite's platform.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure represents a failed validation.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an execution that never produced a score.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit maps a run onto JUnit shapes: one testsuite per
// platform, one testcase per task execution. CI test tabs then show
// the validation matrix the same way they show unit tests.
func ConvertToJUnit(report *models.AggregateReport, results []*models.ExecutionResult) *JUnitTestSuites {
	byPlatform := map[string][]*models.ExecutionResult{}
	for _, result := range results {
		byPlatform[result.Platform] = append(byPlatform[result.Platform], result)
	}
	platforms := make([]string, 0, len(byPlatform))
	for name := range byPlatform {
		platforms = append(platforms, name)
	}
	sort.Strings(platforms)

	suites := &JUnitTestSuites{
		Tests:    report.TotalTasks,
		Failures: report.FailedTasks,
	}

	for _, platform := range platforms {
		group := byPlatform[platform]
		rollup := report.PlatformSummary[platform]

		suite := JUnitTestSuite{
			Name:      platform,
			Tests:     len(group),
			Timestamp: report.GeneratedAt.Format(time.RFC3339),
			Properties: []JUnitProperty{
				{Name: "meanScore", Value: fmt.Sprintf("%.2f", rollup.MeanScore)},
				{Name: "passRate", Value: fmt.Sprintf("%.2f", rollup.PassRate)},
			},
		}
		for _, result := range group {
			tc := convertResult(result)
			suite.Time += tc.Time
			if tc.Failure != nil {
				suite.Failures++
			}
			if tc.Error != nil {
				suite.Errors++
			}
			suite.TestCases = append(suite.TestCases, tc)
		}
		suites.Time += suite.Time
		suites.Errors += suite.Errors
		suites.TestSuites = append(suites.TestSuites, suite)
	}

	return suites
}

func convertResult(result *models.ExecutionResult) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      result.TaskName,
		Classname: result.Platform,
		Time:      float64(result.ExecutionTimeMs) / 1000.0,
	}

	switch result.Status {
	case models.StatusFailed:
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s: score=%.2f", result.TaskName, result.Score),
			Type:    "ValidationFailure",
			Body:    formatIssues(result.Issues),
		}
	case models.StatusError:
		msg := result.ErrorMsg
		if msg == "" {
			msg = "execution error"
		}
		tc.Error = &JUnitError{
			Message: msg,
			Type:    "ExecutionError",
		}
	}
	return tc
}

func formatIssues(issues []models.Issue) string {
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "[%s] %s: %s\n", issue.Severity, issue.Category, issue.Message)
	}
	return b.String()
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(report *models.AggregateReport, results []*models.ExecutionResult, path string) error {
	suites := ConvertToJUnit(report, results)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
