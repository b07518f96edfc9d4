package testing

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dbasic-io/dbasic"
	"github.com/dbasic-io/dbasic/compiler"
)

const (
	testPrefix   = "test_"
	outputMarker = "// Output:"
	outputTest   = "output"
)

// Config holds configuration for running tests.
type Config struct {
	// Patterns specifies files or directories to search for tests.
	// Default is current directory.
	Patterns []string

	// RunPattern filters tests to run by name regex.
	RunPattern string

	// Verbose shows the output of passing tests too.
	Verbose bool

	// Options are applied to every session a test runs in.
	Options []dbasic.Option
}

// DiscoverTestFiles finds all *_test.bas files matching the given patterns.
// A pattern is a glob, a file, a directory, or a directory followed by
// "/..." to search it recursively.
func DiscoverTestFiles(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if isTestFile(path) && !seen[path] {
			files = append(files, path)
			seen[path] = true
		}
	}

	for _, pattern := range patterns {
		if strings.Contains(pattern, "*") {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		recursive := false
		searchDir := pattern
		if strings.HasSuffix(pattern, "...") {
			recursive = true
			searchDir = strings.TrimSuffix(strings.TrimSuffix(pattern, "..."), "/")
			if searchDir == "" {
				searchDir = "."
			}
		}

		info, err := os.Stat(searchDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("path not found: %s", searchDir)
			}
			return nil, err
		}
		switch {
		case !info.IsDir():
			add(pattern)
		case recursive:
			err = filepath.WalkDir(searchDir, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		default:
			entries, err := os.ReadDir(searchDir)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() {
					add(filepath.Join(searchDir, e.Name()))
				}
			}
		}
	}
	return files, nil
}

func isTestFile(path string) bool {
	return strings.HasSuffix(path, "_test.bas")
}

// DiscoverTestFunctions returns the names of the test functions among the
// compiled units, in definition order.
func DiscoverTestFunctions(units []compiler.Unit) []string {
	var tests []string
	for _, u := range units {
		if strings.HasPrefix(u.Name, testPrefix) {
			tests = append(tests, u.Name)
		}
	}
	return tests
}

// ExpectedOutput extracts the golden output block from source. The second
// result is false when the source has none.
func ExpectedOutput(source string) (string, bool) {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != outputMarker {
			continue
		}
		var b strings.Builder
		for _, l := range lines[i+1:] {
			l = strings.TrimSpace(l)
			if !strings.HasPrefix(l, "//") {
				break
			}
			l = strings.TrimPrefix(strings.TrimPrefix(l, "//"), " ")
			b.WriteString(l)
			b.WriteByte('\n')
		}
		return b.String(), true
	}
	return "", false
}

// Run executes tests according to the given configuration.
func Run(ctx context.Context, cfg *Config) (*Summary, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	files, err := DiscoverTestFiles(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	var runRe *regexp.Regexp
	if cfg.RunPattern != "" {
		runRe, err = regexp.Compile(cfg.RunPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid run pattern: %w", err)
		}
	}

	summary := &Summary{}
	start := time.Now()
	for _, file := range files {
		summary.Files = append(summary.Files, runTestFile(ctx, cfg, file, runRe))
	}
	summary.Duration = time.Since(start)
	summary.ComputeTotals()
	return summary, nil
}

type testFile struct {
	filename string
	source   string
	opts     []dbasic.Option
}

// session returns a fresh session for the file that prints into out.
func (f *testFile) session(out *bytes.Buffer) (*dbasic.Session, error) {
	opts := append([]dbasic.Option{dbasic.WithFilename(f.filename)}, f.opts...)
	return dbasic.NewSession(append(opts, dbasic.WithOutput(out))...)
}

func runTestFile(ctx context.Context, cfg *Config, filename string, runRe *regexp.Regexp) *FileResult {
	result := &FileResult{Filename: filename}
	source, err := os.ReadFile(filename)
	if err != nil {
		result.CompileErr = err
		return result
	}
	f := &testFile{filename: filename, source: string(source), opts: cfg.Options}

	var discard bytes.Buffer
	s, err := f.session(&discard)
	if err != nil {
		result.CompileErr = err
		return result
	}
	units, err := s.Compile(ctx, f.source)
	if err != nil {
		result.CompileErr = err
		return result
	}

	selected := func(name string) bool {
		return runRe == nil || runRe.MatchString(name)
	}
	if want, ok := ExpectedOutput(f.source); ok && selected(outputTest) {
		result.Tests = append(result.Tests, runOutputTest(ctx, f, want))
	}
	for _, name := range DiscoverTestFunctions(units) {
		if selected(name) {
			result.Tests = append(result.Tests, runSingleTest(ctx, f, name))
		}
	}
	return result
}

// runOutputTest runs the file's main code and compares what it prints with
// the golden output block.
func runOutputTest(ctx context.Context, f *testFile, want string) *TestResult {
	result := &TestResult{Name: outputTest}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	var out bytes.Buffer
	s, err := f.session(&out)
	if err == nil {
		err = s.Eval(ctx, f.source)
	}
	if err != nil {
		result.Status = StatusError
		result.Error = err
		return result
	}
	if got := out.String(); got != want {
		result.Status = StatusFailed
		result.Failures = append(result.Failures, Failure{
			Message: "output mismatch",
			File:    f.filename,
			Got:     got,
			Want:    want,
		})
		return result
	}
	result.Status = StatusPassed
	return result
}

// runSingleTest runs the file in a fresh session and then calls one test
// function.
func runSingleTest(ctx context.Context, f *testFile, name string) *TestResult {
	result := &TestResult{Name: name}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	var out bytes.Buffer
	s, err := f.session(&out)
	if err == nil {
		err = s.Eval(ctx, f.source)
	}
	if err != nil {
		result.Status = StatusError
		result.Error = err
		return result
	}

	out.Reset()
	err = s.Eval(ctx, fmt.Sprintf("return %s();", name))
	result.Logs = outputLines(out.String())
	if err != nil {
		result.Status = StatusError
		result.Error = err
		return result
	}
	if code := s.Result(); code != 0 {
		result.Status = StatusFailed
		result.Failures = append(result.Failures, Failure{
			Message: fmt.Sprintf("%s returned %d", name, code),
			File:    f.filename,
		})
		return result
	}
	result.Status = StatusPassed
	return result
}

func outputLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
