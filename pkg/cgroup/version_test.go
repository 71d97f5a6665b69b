//go:build linux

package cgroup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mountsV1 = `sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
tmpfs /sys/fs/cgroup tmpfs ro,nosuid,nodev,noexec,mode=755 0 0
cgroup /sys/fs/cgroup/memory cgroup rw,nosuid,nodev,noexec,relatime,memory 0 0
cgroup /sys/fs/cgroup/cpuset cgroup rw,nosuid,nodev,noexec,relatime,cpuset 0 0
`

const mountsV2 = `sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
cgroup2 /sys/fs/cgroup cgroup2 rw,nosuid,nodev,noexec,relatime 0 0
`

func TestDetectVersion(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mounts string
		want   Version
	}{
		{"v1 only", mountsV1, VersionV1},
		{"v2 only", mountsV2, VersionV2},
		{"hybrid v1 first", mountsV1 + mountsV2, VersionV1},
		{"hybrid v2 first", mountsV2 + mountsV1, VersionV1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := detectVersion(strings.NewReader(tc.mounts))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectVersionNoCgroups(t *testing.T) {
	for _, mounts := range []string{"", "sysfs /sys sysfs rw 0 0\n"} {
		got, err := detectVersion(strings.NewReader(mounts))
		assert.ErrorIs(t, err, ErrVersionNotDetected)
		assert.Equal(t, VersionUnknown, got)
	}
}

func TestDetectVersionFromFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "mounts")
	require.NoError(t, os.WriteFile(p, []byte(mountsV1), 0644))

	old := procMountsPath
	procMountsPath = p
	defer func() { procMountsPath = old }()

	got, err := DetectVersion()
	require.NoError(t, err)
	assert.Equal(t, VersionV1, got)
}

func TestDetectVersionUnreadableMounts(t *testing.T) {
	old := procMountsPath
	procMountsPath = filepath.Join(t.TempDir(), "nope")
	defer func() { procMountsPath = old }()

	got, err := DetectVersion()
	assert.ErrorContains(t, err, "cannot read")
	assert.Equal(t, VersionUnknown, got)
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "v1", VersionV1.String())
	assert.Equal(t, "v2", VersionV2.String())
	assert.Equal(t, "unknown", VersionUnknown.String())
}
