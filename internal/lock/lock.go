// Package lock guards the import read-modify-write sequence against a second
// writer. In-memory libraries use NoOpLocker; on-disk libraries use a yaml
// lock file next to the database.
package lock

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultTTL is how long a lock stays valid without being released.
const DefaultTTL = 60 * time.Second

// ErrLocked is returned when another locker holds a live lock.
var ErrLocked = errors.New("library is locked")

// Lock is the content of a lock file.
type Lock struct {
	Owner    string    `yaml:"owner"`
	PID      int       `yaml:"pid"`
	Token    string    `yaml:"token"`
	Acquired time.Time `yaml:"acquired"`
	TTL      string    `yaml:"ttl"`
}

// TTLDuration parses the TTL, falling back to DefaultTTL.
func (l *Lock) TTLDuration() time.Duration {
	d, err := time.ParseDuration(l.TTL)
	if err != nil {
		return DefaultTTL
	}
	return d
}

// IsStale reports whether the lock has outlived its TTL.
func (l *Lock) IsStale(now time.Time) bool {
	return now.Sub(l.Acquired) > l.TTLDuration()
}

// LockError describes a lock held by someone else.
type LockError struct {
	Owner    string
	PID      int
	Acquired time.Time
}

func (e *LockError) Error() string {
	return fmt.Sprintf("%s by %s (pid %d) since %s", ErrLocked, e.Owner, e.PID, e.Acquired.Format(time.RFC3339))
}

func lockError(lk *Lock) *LockError {
	return &LockError{Owner: lk.Owner, PID: lk.PID, Acquired: lk.Acquired}
}

func (e *LockError) Unwrap() error {
	return ErrLocked
}

// Locker serializes writers of one library.
type Locker interface {
	Acquire() error
	Release() error
}

// NoOpLocker always succeeds.
type NoOpLocker struct{}

func (NoOpLocker) Acquire() error { return nil }
func (NoOpLocker) Release() error { return nil }

// FileLocker implements Locker with a lock file. Every FileLocker has its
// own token, so two lockers never share a lock even under the same owner.
type FileLocker struct {
	path  string
	owner string
	token string
	ttl   time.Duration
	now   func() time.Time
	alive func(pid int) bool
	mu    sync.Mutex
}

// NewFileLocker creates a FileLocker for the lock file at path.
func NewFileLocker(path, owner string) *FileLocker {
	return &FileLocker{
		path:  path,
		owner: owner,
		token: uuid.NewString(),
		ttl:   DefaultTTL,
		now:   time.Now,
		alive: processExists,
	}
}

// DefaultOwner identifies this process as user@host.
func DefaultOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	return fmt.Sprintf("%s@%s", user, host)
}

// Path returns the lock file path.
func (l *FileLocker) Path() string {
	return l.path
}

func (l *FileLocker) readLock() (*Lock, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}

	var lk Lock
	if err := yaml.Unmarshal(data, &lk); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	return &lk, nil
}

func (l *FileLocker) newLock() *Lock {
	return &Lock{
		Owner:    l.owner,
		PID:      os.Getpid(),
		Token:    l.token,
		Acquired: l.now().UTC(),
		TTL:      l.ttl.String(),
	}
}

// writeLock replaces the lock file via a temp file and rename.
func (l *FileLocker) writeLock(lk *Lock) error {
	data, err := yaml.Marshal(lk)
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}

	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename lock file: %w", err)
	}
	return nil
}

// createLock writes the lock file only if none exists.
func (l *FileLocker) createLock(lk *Lock) error {
	data, err := yaml.Marshal(lk)
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write lock file: %w", err)
	}
	return f.Close()
}

// heldByUs reports whether lk was written by this locker.
func (l *FileLocker) heldByUs(lk *Lock) bool {
	return lk.Owner == l.owner && lk.PID == os.Getpid() && lk.Token == l.token
}

// abandoned reports whether the holder of lk can no longer release it: its
// TTL ran out, or it was a process of this owner that has exited.
func (l *FileLocker) abandoned(lk *Lock) bool {
	if lk.IsStale(l.now()) {
		return true
	}
	return lk.Owner == l.owner && lk.PID != os.Getpid() && !l.alive(lk.PID)
}

// Acquire takes the lock. A lock held by another locker is claimed only
// when abandoned.
func (l *FileLocker) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.createLock(l.newLock())
	if err == nil {
		return nil
	}
	if !os.IsExist(err) {
		return fmt.Errorf("create lock: %w", err)
	}

	existing, err := l.readLock()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read lock: %w", err)
	}
	if existing != nil && !l.heldByUs(existing) && !l.abandoned(existing) {
		return lockError(existing)
	}

	return l.writeLock(l.newLock())
}

// Release removes the lock if this locker holds it.
func (l *FileLocker) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.readLock()
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lock: %w", err)
	}
	if !l.heldByUs(existing) {
		return lockError(existing)
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// processExists checks if a process with the given PID exists.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix FindProcess always succeeds; signal 0 probes the process.
	return process.Signal(syscall.Signal(0)) == nil
}
