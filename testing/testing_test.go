package testing

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	stdt "testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbasic-io/dbasic/compiler"
)

func TestStatusString(t *stdt.T) {
	assert.Equal(t, "PASS", StatusPassed.String())
	assert.Equal(t, "FAIL", StatusFailed.String())
	assert.Equal(t, "ERROR", StatusError.String())
	assert.Equal(t, "UNKNOWN", Status(9).String())
}

func TestDiscoverTestFiles(t *stdt.T) {
	tests := []struct {
		name     string
		patterns []string
		expected []string
	}{
		{"directory", []string{"testdata"}, []string{
			filepath.Join("testdata", "bad_test.bas"),
			filepath.Join("testdata", "math_test.bas"),
		}},
		{"recursive", []string{"testdata/..."}, []string{
			filepath.Join("testdata", "bad_test.bas"),
			filepath.Join("testdata", "math_test.bas"),
			filepath.Join("testdata", "sub", "deep_test.bas"),
		}},
		{"glob", []string{"testdata/m*"}, []string{filepath.Join("testdata", "math_test.bas")}},
		{"file", []string{"testdata/sub/deep_test.bas"}, []string{"testdata/sub/deep_test.bas"}},
		{"not a test file", []string{"testdata/helper.bas"}, nil},
		{"duplicates", []string{"testdata/m*", "testdata/math_test.bas"}, []string{filepath.Join("testdata", "math_test.bas")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *stdt.T) {
			files, err := DiscoverTestFiles(tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, files)
		})
	}

	_, err := DiscoverTestFiles([]string{"testdata/missing"})
	assert.EqualError(t, err, "path not found: testdata/missing")
}

func TestDiscoverTestFunctions(t *stdt.T) {
	units := []compiler.Unit{{Name: "square"}, {Name: "test_a"}, {Name: "<main>"}, {Name: "test_b"}}
	assert.Equal(t, []string{"test_a", "test_b"}, DiscoverTestFunctions(units))
}

func TestExpectedOutput(t *stdt.T) {
	want, ok := ExpectedOutput("print 1;\n// Output:\n// 1\n//\n//   x\nprint 2;\n// 2\n")
	require.True(t, ok)
	assert.Equal(t, "1\n\n  x\n", want)

	_, ok = ExpectedOutput("print 1; // 1\n")
	assert.False(t, ok)
}

func findFile(t *stdt.T, summary *Summary, name string) *FileResult {
	t.Helper()
	for _, f := range summary.Files {
		if filepath.Base(f.Filename) == name {
			return f
		}
	}
	t.Fatalf("no result for %s", name)
	return nil
}

func TestRun(t *stdt.T) {
	summary, err := Run(context.Background(), &Config{Patterns: []string{"testdata/..."}})
	require.NoError(t, err)
	require.Len(t, summary.Files, 3)

	bad := findFile(t, summary, "bad_test.bas")
	assert.Error(t, bad.CompileErr)
	assert.Empty(t, bad.Tests)

	math := findFile(t, summary, "math_test.bas")
	require.NoError(t, math.CompileErr)
	require.Len(t, math.Tests, 3)
	assert.Equal(t, "output", math.Tests[0].Name)
	assert.Equal(t, StatusPassed, math.Tests[0].Status)
	assert.Equal(t, "test_square", math.Tests[1].Name)
	assert.Equal(t, StatusPassed, math.Tests[1].Status)

	broken := math.Tests[2]
	assert.Equal(t, "test_broken", broken.Name)
	assert.Equal(t, StatusFailed, broken.Status)
	require.Len(t, broken.Failures, 1)
	assert.Equal(t, "test_broken returned -1", broken.Failures[0].Message)
	assert.Equal(t, []string{"checking"}, broken.Logs)

	deep := findFile(t, summary, "deep_test.bas")
	require.Len(t, deep.Tests, 1)
	assert.Equal(t, StatusPassed, deep.Tests[0].Status)

	assert.Equal(t, 3, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 4, summary.TotalTests())
	assert.False(t, summary.Success())
}

func TestRunPattern(t *stdt.T) {
	summary, err := Run(context.Background(), &Config{
		Patterns:   []string{"testdata/math_test.bas"},
		RunPattern: "square",
	})
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	require.Len(t, summary.Files[0].Tests, 1)
	assert.Equal(t, "test_square", summary.Files[0].Tests[0].Name)
	assert.True(t, summary.Success())

	_, err = Run(context.Background(), &Config{RunPattern: "("})
	assert.Error(t, err)
}

func TestOutputMismatch(t *stdt.T) {
	f := &testFile{filename: "x_test.bas", source: "print 2;\n// Output:\n// 3\n"}
	result := runOutputTest(context.Background(), f, "3\n")
	assert.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "2\n", result.Failures[0].Got)
	assert.Equal(t, "3\n", result.Failures[0].Want)
}

func TestRuntimeErrorInTest(t *stdt.T) {
	f := &testFile{filename: "x_test.bas", source: "def test_div() { var z; return 1 / z; }"}
	result := runSingleTest(context.Background(), f, "test_div")
	assert.Equal(t, StatusError, result.Status)
	assert.ErrorContains(t, result.Error, "division by zero")
}

func TestPrintResults(t *stdt.T) {
	summary := &Summary{Files: []*FileResult{
		{Filename: "bad_test.bas", CompileErr: errors.New("syntax error: oops")},
		{Filename: "a_test.bas", Tests: []*TestResult{
			{Name: "test_ok", Status: StatusPassed, Logs: []string{"hidden"}},
			{Name: "test_no", Status: StatusFailed, Duration: 2 * time.Millisecond,
				Failures: []Failure{{Message: "test_no returned 1", File: "a_test.bas"}},
				Logs:     []string{"shown"}},
		}},
	}}
	summary.ComputeTotals()

	var buf bytes.Buffer
	NewOutput(OutputConfig{Writer: &buf}).PrintResults(summary)
	expected := `COMPILE ERROR: bad_test.bas
    syntax error: oops
=== RUN   a_test.bas/test_ok
--- PASS: test_ok (0.000s)
=== RUN   a_test.bas/test_no
--- FAIL: test_no (0.002s)
    a_test.bas: test_no returned 1
    shown

FAIL
1 passed, 1 failed
`
	assert.Equal(t, expected, buf.String())
}
