// Package lockfile serializes cfcore processes that write the same ledger.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when a live process holds the lock.
var ErrLocked = errors.New("lockfile: held by another process")

// LockFile is an exclusive, PID-stamped lock file.
type LockFile struct {
	path string
	file *os.File
}

// Acquire creates path exclusively and writes our PID into it. A lock left
// behind by a dead process is removed and acquisition retried once.
func Acquire(path string) (*LockFile, error) {
	l, err := create(path)
	if err == nil || !os.IsExist(err) {
		return l, err
	}
	if err := clearStale(path); err != nil {
		return nil, err
	}
	l, err = create(path)
	if os.IsExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return l, err
}

func create(path string) (*LockFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}
	return &LockFile{path: path, file: f}, nil
}

// clearStale removes path when the PID inside it is no longer running.
func clearStale(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("lock file exists but cannot be read: %s\nRemove it manually if no other instance is running: rm %s", path, path)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("lock file contains invalid PID: %s\nRemove it manually if corrupted: rm %s", path, path)
	}
	if processExists(pid) {
		return fmt.Errorf("%w (PID %d)\nClose other instances or remove the lock file if stale: %s", ErrLocked, pid, path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stale lock (PID %d) cannot be removed: %w", pid, err)
	}
	return nil
}

func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix FindProcess always succeeds; signal 0 probes liveness.
	err = p.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return false
	}
	// EPERM: the process exists but belongs to someone else.
	return true
}

// Release closes and removes the lock file. A nil lock is a no-op.
func (l *LockFile) Release() error {
	if l == nil {
		return nil
	}
	if l.file != nil {
		_ = l.file.Close()
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

func (l *LockFile) Path() string { return l.path }
