//go:build linux

package cgroup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Version identifies a cgroup generation of the kernel.
type Version int

const (
	// VersionUnknown means no usable cgroup setup was detected.
	VersionUnknown Version = iota
	// VersionV1 is the older generation with one mount per subsystem.
	VersionV1
	// VersionV2 is the unified hierarchy.
	VersionV2
)

func (v Version) String() string {
	switch v {
	case VersionV1:
		return "v1"
	case VersionV2:
		return "v2"
	}
	return "unknown"
}

// ErrVersionNotDetected is returned when the mount table contains no
// cgroup filesystem at all.
var ErrVersionNotDetected = errors.New("could not detect cgroup version")

// DetectVersion inspects the mount table and reports which cgroup
// generation the system runs. Hybrid setups with both generations
// mounted are reported as VersionV1.
func DetectVersion() (Version, error) {
	f, err := os.Open(procMountsPath)
	if err != nil {
		return VersionUnknown, fmt.Errorf("cannot read %s: %w", procMountsPath, err)
	}
	defer f.Close()
	return detectVersion(f)
}

func detectVersion(r io.Reader) (Version, error) {
	version := VersionUnknown
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		switch fields[2] {
		case "cgroup":
			version = VersionV1
		case "cgroup2":
			// only counts if it is the only active generation
			if version != VersionV1 {
				version = VersionV2
			}
		}
	}
	if err := sc.Err(); err != nil {
		return VersionUnknown, fmt.Errorf("cannot read mount table: %w", err)
	}
	if version == VersionUnknown {
		return VersionUnknown, ErrVersionNotDetected
	}
	return version, nil
}
