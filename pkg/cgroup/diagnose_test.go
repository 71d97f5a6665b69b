//go:build linux

package cgroup

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExit records the fatal message and aborts HandleErrors through a
// panic so the test can continue.
func stubExit(t *testing.T) *string {
	t.Helper()
	var msg string
	old := exitFatal
	exitFatal = func(m string) {
		msg = m
		panic("exit")
	}
	t.Cleanup(func() { exitFatal = old })
	return &msg
}

func stubSystem(t *testing.T, systemd, debian bool) {
	t.Helper()
	oldSystemd, oldDebian := hasSystemd, isDebian
	hasSystemd = func() bool { return systemd }
	isDebian = func() bool { return debian }
	t.Cleanup(func() { hasSystemd, isDebian = oldSystemd, oldDebian })
}

func TestHandleErrorsWithoutCriticalProblems(t *testing.T) {
	stubExit(t)

	c := newCgroupSet(map[string]string{Memory: t.TempDir()})
	c.unusableSubsystems[Freeze] = true

	// freezer is broken but not required by the caller
	assert.NotPanics(t, func() { c.HandleErrors(Memory, CPU) })
	assert.NotPanics(t, func() { c.HandleErrors() })
}

func TestHandleErrorsUnusableSubsystem(t *testing.T) {
	msg := stubExit(t)

	c := newCgroupSet(nil)
	c.unusableSubsystems[Memory] = true

	assert.PanicsWithValue(t, "exit", func() { c.HandleErrors(Memory) })
	assert.Contains(t, *msg, "Required cgroups are not available.")
	assert.Contains(t, *msg, `"/sys/fs/cgroup"`)
	assert.NotContains(t, *msg, "chmod")
}

func TestHandleErrorsMissingPermissions(t *testing.T) {
	msg := stubExit(t)
	stubSystem(t, true, false)

	base := t.TempDir()
	dirA := filepath.Join(base, "a")
	dirB := filepath.Join(base, "b")
	require.NoError(t, os.Mkdir(dirA, 0700))
	require.NoError(t, os.Mkdir(dirB, 0700))

	c := newCgroupSet(nil)
	c.unusableSubsystems[Freeze] = true
	c.unusableSubsystems[Memory] = true
	c.unusableSubsystems[CPU] = true
	c.deniedSubsystems[Freeze] = dirA
	c.deniedSubsystems[Memory] = dirB
	c.deniedSubsystems[CPU] = dirB

	assert.PanicsWithValue(t, "exit", func() { c.HandleErrors(Freeze, Memory, CPU) })
	assert.Contains(t, *msg, "missing permissions")
	assert.Contains(t, *msg, "runbench-cgroup.service")
	// duplicate directories show up once, in stable order
	assert.Contains(t, *msg, fmt.Sprintf(`"sudo chmod o+wt %s %s"`, dirA, dirB))
}

func TestPermissionHintGroupWritable(t *testing.T) {
	if os.Getgid() == 0 {
		t.Skip("root group would disable the group hint")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0770))

	hint := permissionHint([]string{dir})
	assert.Contains(t, hint, "add your account to the following groups")
	assert.Contains(t, hint, groupName(os.Getgid()))
}

func TestPermissionHintSystemSetups(t *testing.T) {
	tests := []struct {
		name     string
		systemd  bool
		debian   bool
		expected string
	}{
		{"debian", true, true, "#debianubuntu"},
		{"systemd", true, false, "#setting-up-cgroups-on-machines-with-systemd"},
		{"other", false, false, "#setting-up-cgroups-on-machines-without-systemd"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stubSystem(t, tc.systemd, tc.debian)
			// not group writable, so no group hint applies
			hint := permissionHint([]string{t.TempDir()})
			assert.Contains(t, hint, tc.expected)
		})
	}
}

func TestPermissionHintMixedWritability(t *testing.T) {
	stubSystem(t, false, false)

	writable := t.TempDir()
	require.NoError(t, os.Chmod(writable, 0770))

	// one directory without group access pushes towards system setup
	hint := permissionHint([]string{writable, t.TempDir()})
	assert.Contains(t, hint, "#setting-up-cgroups-on-machines-without-systemd")
	assert.NotContains(t, hint, "following groups")
}

func TestGroupName(t *testing.T) {
	// gid that certainly has no entry in the group database
	assert.Equal(t, "1077216", groupName(1077216))
}
