package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreport/internal/security"
)

const testPassphrase = "sixteen bytes or more"

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "key.json")
	key := []byte(`{"type":"service_account"}`)
	require.NoError(t, os.WriteFile(in, key, 0600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-in", in}, testPassphrase, &out))
	assert.Contains(t, out.String(), in+".sealed")

	opened, err := security.LoadCredentials(in+".sealed", []byte(testPassphrase))
	require.NoError(t, err)
	assert.Equal(t, key, opened)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	notJSON := filepath.Join(dir, "key.txt")
	require.NoError(t, os.WriteFile(notJSON, []byte("not json"), 0600))

	var out bytes.Buffer
	assert.Error(t, run(nil, testPassphrase, &out))
	assert.Error(t, run([]string{"-in", notJSON}, "", &out))
	assert.Error(t, run([]string{"-in", notJSON}, testPassphrase, &out))
	assert.Error(t, run([]string{"-in", filepath.Join(dir, "absent.json")}, testPassphrase, &out))
}
