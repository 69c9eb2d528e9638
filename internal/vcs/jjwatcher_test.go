package vcs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJJWatcher_NonJJDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "jjvcs-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	watcher, err := NewJJWatcher(tmpDir)
	assert.NoError(t, err, "should not error for a non-jj directory")
	assert.Nil(t, watcher, "should return nil watcher for non-jj directory")
}

func TestIsJJWorkspace_False(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "jjvcs-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	assert.False(t, isJJWorkspace(tmpDir))
}

func TestCurrentJJBookmark_Unavailable(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "jjvcs-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	assert.Empty(t, currentJJBookmark(tmpDir))
}
