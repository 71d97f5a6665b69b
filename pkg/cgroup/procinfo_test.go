//go:build linux

package cgroup

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcCgroup(t *testing.T) {
	content := `11:memory:/user.slice/benchmark
10:cpuset:/
4:cpu,cpuacct:/user.slice
1:name=systemd:/user.slice/user-1000.slice
0::/user.slice/session.scope
`
	cgroups, err := parseProcCgroup(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "user.slice/benchmark", cgroups["memory"])
	assert.Equal(t, "", cgroups["cpuset"])
	assert.Equal(t, "user.slice", cgroups["cpu"])
	assert.Equal(t, "user.slice", cgroups["cpuacct"])
	assert.Equal(t, "user.slice/user-1000.slice", cgroups["name=systemd"])
}

func TestParseProcCgroupMalformed(t *testing.T) {
	_, err := parseProcCgroup(strings.NewReader("4:memory\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "4:memory")
}

func TestParseProcCgroupEmpty(t *testing.T) {
	cgroups, err := parseProcCgroup(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cgroups)
}

func TestFindOwnCgroups(t *testing.T) {
	// the real /proc/self/cgroup must always parse
	_, err := findOwnCgroups()
	assert.NoError(t, err)
}

func TestFindOwnCgroupsUnreadable(t *testing.T) {
	old := procSelfCgroupPath
	procSelfCgroupPath = filepath.Join(t.TempDir(), "nope")
	defer func() { procSelfCgroupPath = old }()

	cgroups, err := findOwnCgroups()
	require.NoError(t, err)
	assert.Empty(t, cgroups)
}
