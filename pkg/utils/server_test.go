package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPersistentServerID_Override(t *testing.T) {
	assert.Equal(t, "node-a", GetPersistentServerID("node-a", t.TempDir()))
}

func TestGetPersistentServerID_ReadsSavedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".server_id"), []byte(" azeight-saved \n"), 0644))
	assert.Equal(t, "azeight-saved", GetPersistentServerID("", dir))
}

func TestGetPersistentServerID_Stable(t *testing.T) {
	dir := t.TempDir()
	first := GetPersistentServerID("", dir)
	assert.True(t, strings.HasPrefix(first, serverIDPrefix))
	assert.Equal(t, first, GetPersistentServerID("", dir))
}

func TestSanitizeHost(t *testing.T) {
	assert.Equal(t, "pod-1host_x", sanitizeHost("pod-1.host_x"))
}

func TestPanicIfNeeded(t *testing.T) {
	assert.NotPanics(t, func() { PanicIfNeeded(nil) })
	assert.Panics(t, func() { PanicIfNeeded(os.ErrNotExist) })
}
