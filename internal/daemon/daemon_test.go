package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDLifecycle(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "worktally.pid"))

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Zero(t, pid)

	require.NoError(t, d.WritePID())
	pid, err = d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, pid, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, d.RemovePID())
	require.NoError(t, d.RemovePID())
}

func TestStalePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worktally.pid")
	// pid_max on Linux is at most 4194304
	require.NoError(t, os.WriteFile(path, []byte("4194305\n"), 0o644))
	d := New(path)

	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "stale PID file is removed")

	assert.True(t, errors.Is(d.Stop(), ErrNotRunning))
}

func TestInvalidPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worktally.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	_, err := New(path).ReadPID()
	assert.Error(t, err)
}
