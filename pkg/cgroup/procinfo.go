//go:build linux

package cgroup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// parseProcCgroup parses content in the format of /proc/<pid>/cgroup into
// a map from subsystem to the cgroup of the process, relative to the
// hierarchy root.
func parseProcCgroup(r io.Reader) (map[string]string, error) {
	cgroups := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		// each line is "id:subsystem,subsystem:path"
		line := strings.TrimSpace(sc.Text())
		fields := strings.SplitN(line, ":", 3)
		if len(fields) < 3 {
			return nil, fmt.Errorf("malformed cgroup membership line %q", line)
		}
		path := strings.TrimPrefix(fields[2], "/")
		for _, subsystem := range strings.Split(fields[1], ",") {
			cgroups[subsystem] = path
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cgroups, nil
}

// findOwnCgroups returns the cgroup of the current process in each
// hierarchy. An unreadable /proc/self/cgroup is logged and treated like
// an empty one.
func findOwnCgroups() (map[string]string, error) {
	f, err := os.Open(procSelfCgroupPath)
	if err != nil {
		logrus.Errorf("Cannot read %s: %v", procSelfCgroupPath, err)
		return map[string]string{}, nil
	}
	defer f.Close()
	return parseProcCgroup(f)
}
