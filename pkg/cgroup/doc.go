// Package cgroup gives access to the kernel's control groups for measuring
// and limiting the resource usage of process trees, including reliable
// cleanup of left-over processes.
//
// The typical entry point is Initialize, which probes the mounted cgroup
// generation and returns a matching implementation. Callers then check the
// subsystems they need with RequireSubsystem and report fatal problems
// through HandleErrors.
package cgroup
