package reporting

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugvet/plugvet/internal/models"
)

func junitFixture() (*models.AggregateReport, []*models.ExecutionResult) {
	results := []*models.ExecutionResult{
		{
			TaskName:        "asset-import",
			Platform:        "editor",
			Status:          models.StatusPassed,
			Score:           9.0,
			ExecutionTimeMs: 1500,
		},
		{
			TaskName: "shader-check",
			Platform: "editor",
			Status:   models.StatusFailed,
			Score:    3.0,
			Issues: []models.Issue{
				{Severity: models.IssueCritical, Category: "security", Message: "eval in shader script"},
			},
			ExecutionTimeMs: 500,
		},
		{
			TaskName: "asset-import",
			Platform: "mobile",
			Status:   models.StatusError,
			ErrorMsg: "execution timed out after 30s",
		},
	}
	report := &models.AggregateReport{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		TotalTasks:  3,
		PassedTasks: 1,
		FailedTasks: 1,
		ErrorTasks:  1,
		PlatformSummary: map[string]models.PlatformRollup{
			"editor": {Platform: "editor", TaskCount: 2, PassedCount: 1, PassRate: 0.5, MeanScore: 6.0},
			"mobile": {Platform: "mobile", TaskCount: 1, PassRate: 0},
		},
	}
	return report, results
}

func TestConvertToJUnitShape(t *testing.T) {
	report, results := junitFixture()

	suites := ConvertToJUnit(report, results)

	require.Equal(t, 3, suites.Tests)
	require.Equal(t, 1, suites.Failures)
	require.Equal(t, 1, suites.Errors)
	require.Len(t, suites.TestSuites, 2)

	editor := suites.TestSuites[0]
	assert.Equal(t, "editor", editor.Name)
	assert.Equal(t, 2, editor.Tests)
	assert.Equal(t, 1, editor.Failures)
	assert.Equal(t, 0, editor.Errors)
	assert.InDelta(t, 2.0, editor.Time, 1e-9)
	assert.Equal(t, "2026-03-01T12:00:00Z", editor.Timestamp)
	require.Len(t, editor.Properties, 2)
	assert.Equal(t, "meanScore", editor.Properties[0].Name)
	assert.Equal(t, "6.00", editor.Properties[0].Value)

	mobile := suites.TestSuites[1]
	assert.Equal(t, "mobile", mobile.Name)
	assert.Equal(t, 1, mobile.Errors)
}

func TestConvertToJUnitFailureAndError(t *testing.T) {
	report, results := junitFixture()

	suites := ConvertToJUnit(report, results)

	var failed *JUnitTestCase
	for i := range suites.TestSuites[0].TestCases {
		tc := &suites.TestSuites[0].TestCases[i]
		if tc.Name == "shader-check" {
			failed = tc
		}
	}
	require.NotNil(t, failed)
	require.NotNil(t, failed.Failure)
	assert.Equal(t, "shader-check: score=3.00", failed.Failure.Message)
	assert.Equal(t, "ValidationFailure", failed.Failure.Type)
	assert.Contains(t, failed.Failure.Body, "[CRITICAL] security: eval in shader script")

	errored := suites.TestSuites[1].TestCases[0]
	require.NotNil(t, errored.Error)
	assert.Equal(t, "execution timed out after 30s", errored.Error.Message)
	assert.Equal(t, "ExecutionError", errored.Error.Type)
	assert.Nil(t, errored.Failure)
}

func TestWriteJUnitXML(t *testing.T) {
	report, results := junitFixture()
	path := filepath.Join(t.TempDir(), "junit.xml")

	require.NoError(t, WriteJUnitXML(report, results, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)
	assert.True(t, strings.HasPrefix(content, xml.Header))
	assert.Contains(t, content, `<testsuite name="editor"`)
	assert.Contains(t, content, `classname="mobile"`)

	var parsed JUnitTestSuites
	require.NoError(t, xml.Unmarshal(raw, &parsed))
	assert.Equal(t, 3, parsed.Tests)
}
