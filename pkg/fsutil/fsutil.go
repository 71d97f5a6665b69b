//go:build linux

// Package fsutil reads and writes the small pseudo files exposed by the
// kernel (cgroupfs, procfs). Reads and writes retry on EINTR since these
// files are backed by kernel callbacks rather than storage.
package fsutil

import (
	"errors"
	"os"
	"strings"
	"syscall"
)

const filePerm = 0644

// ReadFile returns the whole content of the file with surrounding
// whitespace removed.
func ReadFile(p string) (string, error) {
	data, err := os.ReadFile(p)
	for err != nil && errors.Is(err, syscall.EINTR) {
		data, err = os.ReadFile(p)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteFile replaces the content of the file. The file is created if it
// does not exist, which cgroup attribute files always do.
func WriteFile(p string, content string) error {
	data := []byte(content)
	err := os.WriteFile(p, data, filePerm)
	for err != nil && errors.Is(err, syscall.EINTR) {
		err = os.WriteFile(p, data, filePerm)
	}
	return err
}
