//go:build linux

package cgroup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/runbench/go-cgroups/pkg/fsutil"
)

// replaced in tests
var (
	killProcess = defaultKillProcess
	sleep       = time.Sleep
)

// defaultKillProcess sends the signal to the process. Processes that
// already exited on their own are ignored.
func defaultKillProcess(pid int, sig syscall.Signal) {
	err := unix.Kill(pid, sig)
	switch {
	case err == nil, errors.Is(err, unix.ESRCH):
	default:
		logrus.Warnf("Failure %v while killing process %d with signal %s", err, pid, sig)
	}
}

// KillAllTasks kills all tasks in this cgroup and all its child cgroups
// forcefully. The child cgroups are deleted afterwards.
func (c *CgroupsV1) KillAllTasks() error {
	// First go through all cgroups recursively while they are frozen and
	// kill all processes. This helps against fork bombs and prevents
	// processes from creating new subgroups while we are trying to kill
	// everything. But it is only possible if we have freezer, and all
	// processes will stay until they are thawed, so we cannot check for
	// cgroup emptiness and cannot delete subgroups yet.
	if c.Has(Freeze) {
		freezer := c.Path(Freeze)
		stateFile := filepath.Join(freezer, freezerStateFile)

		if err := fsutil.WriteFile(stateFile, frozen); err != nil {
			return err
		}
		if err := c.killSubtree(freezer, false); err != nil {
			return err
		}
		if err := fsutil.WriteFile(stateFile, thawed); err != nil {
			return err
		}
	}

	// Second, go through all cgroups again, kill what is left, check for
	// emptiness, and remove subgroups. This runs on all hierarchies, not
	// only the one with freezer.
	for _, dir := range c.paths {
		if err := c.killSubtree(dir, true); err != nil {
			return err
		}
	}
	return nil
}

// killSubtree processes child cgroups depth first and then the given
// cgroup itself. With del, child cgroups are removed once handled.
func (c *CgroupsV1) killSubtree(dir string, del bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if err := c.killSubtree(child, del); err != nil {
			return err
		}
		if del {
			c.removeCgroup(child)
		}
	}
	return killTasksIn(dir, del)
}

// killTasksIn signals the tasks of exactly this cgroup. With ensureEmpty
// it keeps going until one pass finds no tasks left, waiting half a
// second longer after every attempt, otherwise a single pass is enough.
func killTasksIn(dir string, ensureEmpty bool) error {
	tasks := filepath.Join(dir, tasksFile)

	// TODO We can probably remove this loop over signals and just send
	// SIGKILL. We added this loop when killing sub-processes was not
	// reliable and we did not know why, but now it is reliable.
	for i := 1; ; i++ {
		for _, sig := range []syscall.Signal{unix.SIGKILL, unix.SIGINT, unix.SIGTERM} {
			content, err := fsutil.ReadFile(tasks)
			if err != nil {
				if os.IsNotExist(err) {
					logrus.Warnf("Cgroup tasks file %s could no longer be found while killing", tasks)
					return nil
				}
				return err
			}
			found := false
			for _, field := range strings.Fields(content) {
				pid, err := strconv.Atoi(field)
				if err != nil {
					return fmt.Errorf("unexpected entry %q in %s: %w", field, tasks, err)
				}
				found = true
				if i > 1 {
					logrus.Warnf("Run has left-over process with pid %d in cgroup %s, sending signal %s (try %d).", pid, dir, sig, i)
				}
				killProcess(pid, sig)
			}
			if !found || !ensureEmpty {
				return nil
			}
			// wait for the processes to exit, this might take some time
			sleep(time.Duration(i) * 500 * time.Millisecond)
		}
	}
}
