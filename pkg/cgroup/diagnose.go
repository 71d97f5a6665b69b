//go:build linux

package cgroup

import (
	"fmt"
	"os"
	"os/user"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/kballard/go-shellquote"

	"github.com/runbench/go-cgroups/pkg/sysinfo"
)

const permissionHintGroups = `
You need to add your account to the following groups: %s
Remember to logout and login again afterwards to make group changes effective.`

const permissionHintDebian = `
The recommended way to fix this is to install the Debian package for runbench and add your account to the group "runbench":
https://github.com/runbench/go-cgroups/blob/main/doc/INSTALL.md#debianubuntu
Alternatively, you can install runbench-cgroup.service manually:
https://github.com/runbench/go-cgroups/blob/main/doc/INSTALL.md#setting-up-cgroups-on-machines-with-systemd`

const permissionHintSystemd = `
The recommended way to fix this is to add your account to a group named "runbench" and install runbench-cgroup.service:
https://github.com/runbench/go-cgroups/blob/main/doc/INSTALL.md#setting-up-cgroups-on-machines-with-systemd`

const permissionHintOther = `
Please configure your system in a way that allows your user to use cgroups:
https://github.com/runbench/go-cgroups/blob/main/doc/INSTALL.md#setting-up-cgroups-on-machines-without-systemd`

const errMsgPermissions = `
Required cgroups are not available because of missing permissions.%s

As a temporary workaround, you can also run
"sudo chmod o+wt %s"
Note that this will grant permissions to more users than typically desired and it will only last until the next reboot.`

const errMsgOther = `
Required cgroups are not available.
If you are running inside a container, please make "/sys/fs/cgroup" available.`

// replaced in tests
var (
	exitFatal = func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
	hasSystemd = sysinfo.HasSystemd
	isDebian   = sysinfo.IsDebian
	hasSwap    = sysinfo.HasSwap
)

// HandleErrors terminates the program with a message explaining how to
// fix the setup if any of the given subsystems, which the caller
// requires, turned out unusable in earlier RequireSubsystem calls.
func (c *cgroupSet) HandleErrors(criticalCgroups ...string) {
	var broken []string
	for _, subsystem := range criticalCgroups {
		if c.unusableSubsystems[subsystem] {
			broken = append(broken, subsystem)
		}
	}
	if len(broken) == 0 {
		return
	}

	for _, subsystem := range broken {
		if _, ok := c.deniedSubsystems[subsystem]; !ok {
			// e.g. subsystem not mounted
			exitFatal(errMsgOther)
			return
		}
	}

	// all errors were because of permissions for these directories
	seen := map[string]bool{}
	var paths []string
	for _, dir := range c.deniedSubsystems {
		if !seen[dir] {
			seen[dir] = true
			paths = append(paths, dir)
		}
	}
	sort.Strings(paths)

	exitFatal(fmt.Sprintf(errMsgPermissions, permissionHint(paths), shellquote.Join(paths...)))
}

// permissionHint picks the remediation to suggest. If the denied
// directories are group writable for non-root groups, joining those
// groups is enough, otherwise the system-level setup is explained.
func permissionHint(paths []string) string {
	gids := groupOwnersIfWritable(paths)
	if len(gids) > 0 && !gids[0] {
		names := make([]string, 0, len(gids))
		for gid := range gids {
			names = append(names, shellquote.Join(groupName(gid)))
		}
		sort.Strings(names)
		return fmt.Sprintf(permissionHintGroups, strings.Join(names, " "))
	}
	if hasSystemd() {
		if isDebian() {
			return permissionHintDebian
		}
		return permissionHintSystemd
	}
	return permissionHintOther
}

// groupOwnersIfWritable returns the owning group ids of the given
// directories if every one of them is group writable, nil otherwise.
func groupOwnersIfWritable(paths []string) map[int]bool {
	gids := map[int]bool{}
	for _, dir := range paths {
		st, err := os.Stat(dir)
		if err != nil {
			return nil
		}
		if st.Mode().Perm()&0020 == 0 {
			return nil
		}
		sys, ok := st.Sys().(*syscall.Stat_t)
		if !ok {
			return nil
		}
		gids[int(sys.Gid)] = true
	}
	return gids
}

func groupName(gid int) string {
	group, err := user.LookupGroupId(strconv.Itoa(gid))
	if err != nil {
		return strconv.Itoa(gid)
	}
	return group.Name
}
