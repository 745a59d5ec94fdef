// Package system holds host checks run before writing large files.
package system

import (
	"fmt"
	"syscall"
)

// AvailableSpace returns the bytes available to unprivileged users on the
// filesystem holding path.
func AvailableSpace(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// HasSufficientSpace reports whether path can hold required bytes plus a 10%
// margin for filesystem overhead.
func HasSufficientSpace(path string, required uint64) (bool, uint64, error) {
	available, err := AvailableSpace(path)
	if err != nil {
		return false, 0, err
	}
	need := required + required/10
	return available >= need, available, nil
}
