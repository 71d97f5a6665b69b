//go:build linux

// Package sysinfo answers a few questions about the host system that
// influence how cgroup problems are reported and handled.
package sysinfo

import (
	"bufio"
	"io"
	"os"
	"strings"
)

var (
	meminfoPath    = "/proc/meminfo"
	osReleasePath  = "/etc/os-release"
	systemdRunPath = "/run/systemd/system"
)

// HasSwap reports whether the machine has swap configured. An unreadable
// /proc/meminfo counts as having swap.
func HasSwap() bool {
	f, err := os.Open(meminfoPath)
	if err != nil {
		return true
	}
	defer f.Close()
	return hasSwap(f)
}

func hasSwap(r io.Reader) bool {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[0] == "SwapTotal:" {
			return fields[1] != "0"
		}
	}
	return true
}

// HasSystemd reports whether the host runs systemd as init system.
func HasSystemd() bool {
	st, err := os.Stat(systemdRunPath)
	return err == nil && st.IsDir()
}

// IsDebian reports whether the distribution is Debian or a derivative
// such as Ubuntu.
func IsDebian() bool {
	f, err := os.Open(osReleasePath)
	if err != nil {
		return false
	}
	defer f.Close()
	return isDebian(f)
}

func isDebian(r io.Reader) bool {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "ID=") && !strings.HasPrefix(line, "ID_LIKE=") {
			continue
		}
		_, value, _ := strings.Cut(line, "=")
		value = strings.Trim(strings.TrimSpace(value), `"`)
		for _, id := range strings.Fields(value) {
			if id == "debian" || id == "ubuntu" {
				return true
			}
		}
	}
	return false
}
