package dbasic

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbasic-io/dbasic/compiler"
	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/vm"
)

func run(t *testing.T, src string, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	opts = append(opts, WithOutput(&out))
	require.NoError(t, Run(context.Background(), src, opts...))
	return out.String()
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{"function call", "def add(a,b){return a+b;} print add(2,3);", "5\n"},
		{"global update", "var x = 5; x = x + 1; print x;", "6\n"},
		{"recursion", `
def fact(n) {
	if (n <= 1) return 1;
	return n * fact(n - 1);
}
print fact(5);`, "120\n"},
		{"for loop", "var i, sum; for (i = 1; i <= 10; ++i) sum += i; print sum;", "55\n"},
		{"while with break", "var n = 0; while (1) { n = n + 1; if (n == 3) break; } print n;", "3\n"},
		{"continue", `
var i, odd;
for (i = 0; i < 10; i++) {
	if (i % 2 == 0) continue;
	odd = odd + 1;
}
print odd;`, "5\n"},
		{"do while", "var k = 10; do { k = k - 3; } while (k > 0); print k;", "-2\n"},
		{"if else", "var v = 7; if (v > 5) print \"big\"; else print \"small\";", "big\n"},
		{"strings", `print "hello", 42;`, "hello\t42\n"},
		{"suppressed newline", `print "a" $; print "b";`, "ab\n"},
		{"arrays", "var a[] = {1, 2, 3}; a[1] = 20; print a[0] + a[1] + a[2];", "24\n"},
		{"goto", `
{
	var k;
	k = 0;
again:
	k = k + 1;
	if (k < 3) goto again;
	print k;
}`, "3\n"},
		{"locals", `
def sum3(a, b, c) {
	var t = a + b;
	return t + c;
}
print sum3(1, 2, 3);`, "6\n"},
		{"short circuit", `
var hits;
def hit() { hits = hits + 1; return 1; }
print 0 && hit(), 1 || hit(), hits;`, "0\t1\t0\n"},
		{"constants", "def N = 4; var a[N]; print N * 2;", "8\n"},
		{"poke and peek", "var a[2]; poke(a + 4, 99); print peek(a + 4), a[1];", "99\t99\n"},
		{"redeclared variable", "var x = 3; var x; print x;", "3\n"},
		{"redeclared function", "def f() { return 7; } var f; print f();", "7\n"},
		{"redeclared array", "var a[] = {1, 2}; var a[5]; print a[1];", "2\n"},
		{"empty", "// nothing\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, run(t, tt.src))
		})
	}
}

func TestInputOutput(t *testing.T) {
	out := run(t, "var ch; while ((ch = getchar()) != -1) putchar(ch);", WithInput(strings.NewReader("hi")))
	assert.Equal(t, "hi", out)
}

func TestRegisters(t *testing.T) {
	reg := compiler.Register{Name: "PORTA", Addr: DefaultPoolSize - 4}
	assert.Equal(t, "42\n", run(t, "PORTA = 42; print PORTA;", WithRegisters(reg)))
}

func TestSessionState(t *testing.T) {
	var out bytes.Buffer
	s, err := NewSession(WithOutput(&out))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Eval(ctx, "def sq(n) { return n * n; }"))
	require.NoError(t, s.Eval(ctx, "var total = 1;"))
	require.NoError(t, s.Eval(ctx, "total = total + sq(3); print total;"))
	assert.Equal(t, "10\n", out.String())

	names := make([]string, 0, len(s.Units()))
	for _, u := range s.Units() {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"sq", "<main>", "<main>", "<main>"}, names)
}

func TestCompileOnly(t *testing.T) {
	var out bytes.Buffer
	s, err := NewSession(WithOutput(&out))
	require.NoError(t, err)
	units, err := s.Compile(context.Background(), "def f() { return 1; }\nprint f();")
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "f", units[0].Name)
	assert.Empty(t, out.String())
}

func TestCompileErrorStops(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), "print 1;\nprint (;\nprint 2;", WithOutput(&out))
	require.Error(t, err)
	ce, ok := errors.AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, 2, ce.Line)
	assert.Equal(t, "1\n", out.String())
}

func TestRecover(t *testing.T) {
	var out bytes.Buffer
	var errs []error
	err := Run(context.Background(), "print 1;\nprint (;\nprint 1 / 0;\nprint 2;",
		WithOutput(&out),
		WithRecover(func(err error) { errs = append(errs, err) }))
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", out.String())
	require.Len(t, errs, 2)
	assert.True(t, errors.IsKind(errs[0], errors.Syntax))
	var rerr *vm.RuntimeError
	require.ErrorAs(t, errs[1], &rerr)
	assert.Contains(t, rerr.Error(), "division by zero")
}

func TestRecoverStopsOnResourceErrors(t *testing.T) {
	var errs []error
	err := Run(context.Background(), "var a[100];",
		WithPoolSize(2048, 512),
		WithRecover(func(err error) { errs = append(errs, err) }))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Empty(t, errs)
}

func TestRuntimeError(t *testing.T) {
	err := Run(context.Background(), "var z; print 10 / z;")
	var rerr *vm.RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "DIV", rerr.Op)
}

func TestTracer(t *testing.T) {
	var trace bytes.Buffer
	tracer := vm.NewTracer(&trace)
	assert.Equal(t, "3\n", run(t, "print 1 + 2;", WithObserver(tracer)))
	assert.Greater(t, tracer.Steps(), 0)
	assert.Contains(t, trace.String(), "TRAP")
}

func TestListing(t *testing.T) {
	var listing bytes.Buffer
	run(t, "def f(a) { return a; } print f(1);", WithListing(&listing))
	assert.Contains(t, listing.String(), "f:")
	assert.Contains(t, listing.String(), "RETURN")
}

func TestInvalidPool(t *testing.T) {
	_, err := NewSession(WithPoolSize(64, 128))
	assert.Error(t, err)
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var errs []error
	s, err := NewSession(WithRecover(func(err error) { errs = append(errs, err) }))
	require.NoError(t, err)
	err = s.Eval(ctx, "print 1;")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, errs)
}

func TestResult(t *testing.T) {
	s, err := NewSession()
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Eval(ctx, "def twice(n) { return n * 2; }"))
	require.NoError(t, s.Eval(ctx, "return twice(21);"))
	assert.Equal(t, int32(42), s.Result())
	require.NoError(t, s.Eval(ctx, "print 1;"))
	assert.Equal(t, int32(0), s.Result())
}
