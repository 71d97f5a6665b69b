//go:build linux

package cgroup

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/runbench/go-cgroups/pkg/fsutil"
)

// cgroupSet is the state shared by all implementations: which subsystems
// this instance covers and where each of them lives in the filesystem.
type cgroupSet struct {
	subsystems map[string]string
	paths      []string

	// for error messages
	unusableSubsystems map[string]bool
	deniedSubsystems   map[string]string
}

func newCgroupSet(subsystems map[string]string) cgroupSet {
	if subsystems == nil {
		subsystems = map[string]string{}
	}
	for subsystem, dir := range subsystems {
		if dir == "" {
			panic(fmt.Sprintf("cgroup: empty path for subsystem %s", subsystem))
		}
	}
	s := cgroupSet{
		subsystems:         subsystems,
		unusableSubsystems: map[string]bool{},
		deniedSubsystems:   map[string]string{},
	}
	s.refreshPaths()
	logrus.Debugf("Available cgroups: %v", subsystems)
	return s
}

// refreshPaths recomputes the distinct cgroup directories.
func (c *cgroupSet) refreshPaths() {
	seen := map[string]bool{}
	paths := make([]string, 0, len(c.subsystems))
	for _, dir := range c.subsystems {
		if !seen[dir] {
			seen[dir] = true
			paths = append(paths, dir)
		}
	}
	sort.Strings(paths)
	c.paths = paths
}

// Has reports whether this instance covers the given subsystem.
func (c *cgroupSet) Has(subsystem string) bool {
	_, ok := c.subsystems[subsystem]
	return ok
}

// Path returns the cgroup directory for the given subsystem. It panics
// when the subsystem is not covered, check with Has first.
func (c *cgroupSet) Path(subsystem string) string {
	dir, ok := c.subsystems[subsystem]
	if !ok {
		panic(fmt.Sprintf("cgroup: subsystem %s is missing", subsystem))
	}
	return dir
}

func (c *cgroupSet) String() string {
	return fmt.Sprintf("%v", c.paths)
}

func (c *cgroupSet) attributePath(subsystem, option string) string {
	return filepath.Join(c.Path(subsystem), subsystem+"."+option)
}

// hasValue checks whether the given attribute file exists in the given
// subsystem, regardless of whether it is readable or writable. Do not
// include the subsystem name in the option name. Only call this when the
// subsystem is available.
func (c *cgroupSet) hasValue(subsystem, option string) bool {
	st, err := os.Stat(c.attributePath(subsystem, option))
	return err == nil && st.Mode().IsRegular()
}

// getValue reads the given attribute of the given subsystem.
func (c *cgroupSet) getValue(subsystem, option string) (string, error) {
	return fsutil.ReadFile(c.attributePath(subsystem, option))
}

// setValue writes the given attribute of the given subsystem.
func (c *cgroupSet) setValue(subsystem, option, value string) error {
	return fsutil.WriteFile(c.attributePath(subsystem, option), value)
}

// eachLine calls fn for every line of the given attribute file.
func (c *cgroupSet) eachLine(subsystem, option string, fn func(line string)) error {
	f, err := os.Open(c.attributePath(subsystem, option))
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fn(sc.Text())
	}
	return sc.Err()
}

func (c *cgroupSet) removeCgroup(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logrus.Warnf("Cannot remove cgroup %s, because it does not exist.", dir)
		return
	}
	if err := os.Remove(dir); err == nil {
		return
	}
	// sometimes this fails because the cgroup is still busy, try again once
	if err := os.Remove(dir); err != nil {
		logrus.Warnf("Failed to remove cgroup %s: %v", dir, err)
	}
}

// Remove removes all cgroups this instance represents from the system.
// The instance is not usable afterwards.
func (c *cgroupSet) Remove() {
	for _, dir := range c.paths {
		c.removeCgroup(dir)
	}
	c.paths = nil
	c.subsystems = nil
}

// requireSubsystem implements RequireSubsystem on top of the
// implementation's child-creation function.
func (c *cgroupSet) requireSubsystem(subsystem string, level logrus.Level, createChild func(...string) (Cgroups, error)) bool {
	if !c.Has(subsystem) {
		if !c.unusableSubsystems[subsystem] {
			c.unusableSubsystems[subsystem] = true
			logrus.StandardLogger().Logf(level,
				"Cgroup subsystem %s is not available. Please make sure it is supported by your kernel and mounted.",
				subsystem)
		}
		return false
	}

	testCgroup, err := createChild(subsystem)
	if err != nil {
		logrus.StandardLogger().Logf(level,
			"Cannot use cgroup %s for subsystem %s, reason: %v.",
			c.subsystems[subsystem], subsystem, err)
		c.unusableSubsystems[subsystem] = true
		if errors.Is(err, os.ErrPermission) {
			c.deniedSubsystems[subsystem] = c.subsystems[subsystem]
		}
		delete(c.subsystems, subsystem)
		c.refreshPaths()
		return false
	}
	testCgroup.Remove()
	return true
}
