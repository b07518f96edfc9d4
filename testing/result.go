// Package testing runs dbasic test files.
//
// A test file is named *_test.bas. Every function whose name starts with
// test_ is a test: it passes when it returns zero, and any other value is
// reported as a failure. A file may also end its source with a golden output
// block, which makes the output of its main code a test of its own:
//
//	print 1 + 2;
//	// Output:
//	// 3
package testing

import (
	"time"
)

// Status represents the outcome of a test.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusError
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Failure describes why a test failed.
type Failure struct {
	Message string
	File    string
	Got     string
	Want    string
}

// TestResult holds the outcome of a single test.
type TestResult struct {
	Name     string        // Test name, such as "test_addition" or "output"
	Status   Status        // Pass, fail or error
	Duration time.Duration // How long the test took
	Failures []Failure
	Logs     []string // Lines printed by the test
	Error    error    // Error if Status == StatusError
}

// FileResult holds the results of all tests in a single file.
type FileResult struct {
	Filename   string
	Tests      []*TestResult
	CompileErr error // Error if the file failed to compile
}

func (f *FileResult) count(status Status) int {
	n := 0
	for _, t := range f.Tests {
		if t.Status == status {
			n++
		}
	}
	return n
}

// Passed returns the number of passed tests in this file.
func (f *FileResult) Passed() int { return f.count(StatusPassed) }

// Failed returns the number of failed tests in this file.
func (f *FileResult) Failed() int { return f.count(StatusFailed) }

// Errors returns the number of errored tests in this file.
func (f *FileResult) Errors() int { return f.count(StatusError) }

// Summary aggregates results across all test files.
type Summary struct {
	Files    []*FileResult
	Passed   int
	Failed   int
	Errors   int
	Duration time.Duration
}

// TotalTests returns the total number of tests run.
func (s *Summary) TotalTests() int {
	return s.Passed + s.Failed + s.Errors
}

// Success returns true if every test passed and every file compiled.
func (s *Summary) Success() bool {
	for _, f := range s.Files {
		if f.CompileErr != nil {
			return false
		}
	}
	return s.Failed == 0 && s.Errors == 0
}

// ComputeTotals recalculates the aggregate counts from all file results.
func (s *Summary) ComputeTotals() {
	s.Passed, s.Failed, s.Errors = 0, 0, 0
	for _, f := range s.Files {
		s.Passed += f.Passed()
		s.Failed += f.Failed()
		s.Errors += f.Errors()
	}
}
