// Package lockfile keeps two MicroTutor servers from sharing one state directory.
//
// The lock is an flock on a file in the state directory, so the kernel drops it
// when the process exits, cleanly or not.
package lockfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the lock file created in the state directory.
const LockFileName = "microtutor.lock"

// Holder describes the process that owns a lock.
type Holder struct {
	PID     int
	Addr    string
	Started time.Time
}

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes the exclusive lock on stateDir, creating the directory if
// needed. addr is recorded so a second server can report who holds the lock.
func Acquire(stateDir, addr string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	path := filepath.Join(stateDir, LockFileName)

	// O_TRUNC would wipe the holder's details before we know the lock is ours.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder, _ := readHolder(path)
		file.Close()
		slog.Error("Lockfile.Acquire: state directory is in use", "path", path, "holderPID", holder.PID, "holderAddr", holder.Addr)
		return nil, &LockError{Path: path, Holder: holder, Cause: err}
	}

	h := Holder{PID: os.Getpid(), Addr: addr, Started: time.Now().UTC()}
	if err := writeHolder(file, h); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("failed to write lock file %s: %w", path, err)
	}

	slog.Info("Lockfile.Acquire: state directory locked", "path", path, "pid", h.PID)
	return &Lock{file: file, path: path}, nil
}

// Release drops the lock and removes the file. Calling it twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("Lockfile.Release: failed to unlock", "path", l.path, "error", err)
	}
	closeErr := l.file.Close()
	l.file = nil
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Lockfile.Release: failed to remove lock file", "path", l.path, "error", err)
	}
	slog.Debug("Lockfile.Release: state directory unlocked", "path", l.path)
	return closeErr
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// LockError reports a lock held by another process.
type LockError struct {
	Path   string
	Holder Holder
	Cause  error
}

func (e *LockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "another MicroTutor server is using this state directory (lock file %s)", e.Path)
	if e.Holder.PID > 0 {
		state := "running"
		if !isProcessRunning(e.Holder.PID) {
			state = "not running, stale lock"
		}
		fmt.Fprintf(&b, "; held by pid %d (%s)", e.Holder.PID, state)
		if e.Holder.Addr != "" {
			fmt.Fprintf(&b, " serving %s", e.Holder.Addr)
		}
		if !e.Holder.Started.IsZero() {
			fmt.Fprintf(&b, " since %s", e.Holder.Started.Format(time.RFC3339))
		}
	}
	return b.String()
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

func writeHolder(f *os.File, h Holder) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	content := fmt.Sprintf("pid=%d\naddr=%s\nstarted=%s\n", h.PID, h.Addr, h.Started.Format(time.RFC3339))
	if _, err := f.WriteString(content); err != nil {
		return err
	}
	return f.Sync()
}

// readHolder parses the key=value lines written by writeHolder.
func readHolder(path string) (Holder, error) {
	f, err := os.Open(path)
	if err != nil {
		return Holder{}, err
	}
	defer f.Close()

	var h Holder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			h.PID, _ = strconv.Atoi(value)
		case "addr":
			h.Addr = value
		case "started":
			h.Started, _ = time.Parse(time.RFC3339, value)
		}
	}
	return h, scanner.Err()
}

// isProcessRunning sends signal 0 to pid.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
