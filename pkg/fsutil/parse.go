//go:build linux

package fsutil

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIntList parses a comma-separated list of integers and closed ranges
// as used by cpuset files, e.g. "0-3,7" becomes [0 1 2 3 7].
func ParseIntList(s string) ([]int, error) {
	var values []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		first, rest, isRange := strings.Cut(item, "-")
		if !isRange {
			n, err := strconv.Atoi(item)
			if err != nil {
				return nil, fmt.Errorf("invalid integer list %q: %w", s, err)
			}
			values = append(values, n)
			continue
		}
		start, err := strconv.Atoi(first)
		if err != nil {
			return nil, fmt.Errorf("invalid integer list %q: %w", s, err)
		}
		end, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid integer list %q: %w", s, err)
		}
		for v := start; v <= end; v++ {
			values = append(values, v)
		}
	}
	return values, nil
}

// ReadKeyValuePairs reads a file of "key value" lines like the kernel's
// stat files and returns the entries as a map.
func ReadKeyValuePairs(p string) (map[string]string, error) {
	content, err := ReadFile(p)
	if err != nil {
		return nil, err
	}
	pairs := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, " ")
		if !found {
			return nil, fmt.Errorf("malformed line %q in %s", line, p)
		}
		pairs[key] = value
	}
	return pairs, nil
}
