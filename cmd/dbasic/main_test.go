package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbasic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", writeConfig(t, "# empty\n")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunCode(t *testing.T) {
	out, _, err := execute(t, "", "-c", "print 1 + 2;")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestRunFile(t *testing.T) {
	out, _, err := execute(t, "", "testdata/add.bas")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestRunStdin(t *testing.T) {
	out, _, err := execute(t, "var x = 2; print x * 21;", "--stdin")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}

func TestRunInput(t *testing.T) {
	out, _, err := execute(t, "ok", "-c", "putchar(getchar()); putchar(getchar());")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestInputSources(t *testing.T) {
	_, _, err := execute(t, "", "-c", "print 1;", "testdata/add.bas")
	assert.EqualError(t, err, "multiple input sources specified")

	_, _, err = execute(t, "", "--no-repl")
	assert.EqualError(t, err, "no input provided")
}

func TestCompileErrorOutput(t *testing.T) {
	_, _, err := execute(t, "", "-c", "print 1;\nx = ;")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "syntax error[E1001]")
	assert.Contains(t, msg, " 2 | x = ;")
	assert.Contains(t, msg, "    ^")
}

func TestTraceAndListing(t *testing.T) {
	out, errOut, err := execute(t, "", "--trace", "--listing", "-c", "print 7;")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
	assert.Contains(t, errOut, "<main>:")
	assert.Contains(t, errOut, "HALT")
}

func TestEnvironmentConfig(t *testing.T) {
	t.Setenv("DBASIC_POOL_SIZE", "64")
	_, _, err := execute(t, "", "-c", "print 1;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pool layout")
}

func TestConfigFile(t *testing.T) {
	viper.Reset()
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--config", writeConfig(t, "image-size: 2048\n"), "-c", "var a[1000];"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient memory in image")
}

func TestDisassembly(t *testing.T) {
	out, _, err := execute(t, "", "dis", "-c", "print 1;")
	require.NoError(t, err)
	expected := `
<main>:
+------+--------+---------+----------+
| ADDR | OPCODE | OPERAND |   INFO   |
+------+--------+---------+----------+
|    4 | SLIT   |       1 |          |
|    6 | TRAP   |       3 | PRINTINT |
|    8 | TRAP   |       5 | PRINTNL  |
|   10 | HALT   |         |          |
+------+--------+---------+----------+
`
	assert.Equal(t, strings.TrimPrefix(expected, "\n"), out)
}

func TestDisassemblyJSON(t *testing.T) {
	out, _, err := execute(t, "", "dis", "-o", "json", "testdata/add.bas")
	require.NoError(t, err)
	var units []disassembledUnit
	require.NoError(t, json.Unmarshal([]byte(out), &units))
	require.Len(t, units, 3)
	assert.Equal(t, "add", units[0].Name)
	assert.Equal(t, "FRAME", units[0].Instructions[0].Name)
	require.NotNil(t, units[0].Instructions[0].Operand)
	assert.Equal(t, int32(2), *units[0].Instructions[0].Operand)
}

func TestDisassembleFunction(t *testing.T) {
	out, _, err := execute(t, "", "dis", "--func", "add", "--globals", "testdata/add.bas")
	require.NoError(t, err)
	assert.Contains(t, out, "add:")
	assert.Contains(t, out, "LREF")
	assert.NotContains(t, out, "<main>:")
	assert.Contains(t, out, "symbols:")

	_, _, err = execute(t, "", "dis", "--func", "nope", "testdata/add.bas")
	assert.EqualError(t, err, `function "nope" not found`)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, _, err = execute(t, "", "version", "-o", "json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestRepl(t *testing.T) {
	viper.Reset()
	var stdout, stderr bytes.Buffer
	in := strings.NewReader("print 1;\nprint (;\nprint 2;\n")
	err := runRepl(context.Background(), in, &stdout, &stderr, nil)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "dbasic dev\n")
	assert.Contains(t, stdout.String(), "> ")
	assert.Contains(t, stdout.String(), "1\n")
	assert.Contains(t, stdout.String(), "2\n")
	assert.Contains(t, stderr.String(), "expecting a primary expression")
}

func TestTestCommand(t *testing.T) {
	out, _, err := execute(t, "", "test", "-r", "square", "../../testing/testdata/math_test.bas")
	require.NoError(t, err)
	assert.Contains(t, out, "--- PASS: test_square")
	assert.Contains(t, out, "PASS\n1 passed\n")

	out, _, err = execute(t, "", "test", "../../testing/testdata/math_test.bas")
	assert.Equal(t, errTestsFailed, err)
	assert.Contains(t, out, "--- FAIL: test_broken")
}
