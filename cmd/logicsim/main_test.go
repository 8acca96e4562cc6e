package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const decGuard = "../../scenario/testdata/dec_guard.yaml"

func TestRunPrintsTranscript(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"run", decGuard}, &out, &errOut)

	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "# dec-guard")
	assert.Contains(t, out.String(), "nextDisp name=L(DEC)-0 action=DEC dispAction=NOOP shouldProcess=false")
	assert.Contains(t, out.String(), "state: 0")
}

func TestRunJSON(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"run", "--format", "json", decGuard}, &out, &errOut)

	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), `"name": "dec-guard"`)
}

func TestCheck(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"check", decGuard}, &out, &errOut)

	require.Equal(t, 0, code, errOut.String())
	assert.Equal(t, "dec-guard: ok (1 logics, 2 actions)\n", out.String())
}

func TestCheckInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\nactions: []\n"), 0o600))

	var out, errOut bytes.Buffer
	code := run([]string{"check", path}, &out, &errOut)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "at least one action is required")
}

func TestRunUnsettledExitsNonZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stuck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: stuck
logics:
  - type: FOO
    validate:
      stall: true
actions:
  - type: FOO
`), 0o600))

	var out, errOut bytes.Buffer
	code := run([]string{"run", "--timeout", "50ms", path}, &out, &errOut)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "pending: ")
	assert.Contains(t, errOut.String(), "scenario did not settle")
}

func TestUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.NotEqual(t, 0, run([]string{"explode"}, &out, &errOut))
}

func TestRunPrintsSpans(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"run", "--spans", decGuard}, &out, &errOut)

	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, errOut.String(), `span "logic L(DEC)-0" status=Ok events=next,end`)
	assert.Contains(t, errOut.String(), `span "logic L(DEC)-0" status=Ok events=nextDisp,dispatch,end`)
}
