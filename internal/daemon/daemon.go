// Package daemon detaches teerotate from its terminal.
//
// The parent re-executes its own binary in a new session with stdout and
// stderr redirected to side files. The child recognises itself by an
// environment variable, takes an exclusive lock for its identity and records
// its pid.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danjacques/gofslock/fslock"
	"github.com/mitchellh/go-ps"
)

// EnvIdent is set in the environment of the detached child.
const EnvIdent = "TEEROTATE_DAEMON_IDENT"

// Dir is where side files are created.
var Dir = "/tmp"

var (
	// ErrAlreadyRunning is returned when a daemon with the same identity is alive.
	ErrAlreadyRunning = errors.New("daemon: already running")
	// ErrUnsupported is returned on platforms without daemon support.
	ErrUnsupported = errors.New("daemon: not supported on this platform")
)

// Paths of the side files of one daemon.
type Paths struct {
	Out  string
	Err  string
	PID  string
	Lock string
}

// PathsFor returns the side files for tool and ident.
//
//	e.g. tool "teerotate", ident "web"
//	- /tmp/teerotate-daemon-web-out.log
//	- /tmp/teerotate-daemon-web-err.log
//	- /tmp/teerotate-daemon-web.pid
//	- /tmp/teerotate-daemon-web.pid.lock
func PathsFor(tool, ident string) Paths {
	base := filepath.Join(Dir, fmt.Sprintf("%s-daemon-%s", tool, ident))
	return Paths{
		Out:  base + "-out.log",
		Err:  base + "-err.log",
		PID:  base + ".pid",
		Lock: base + ".pid.lock",
	}
}

// IsChild reports whether this process is a detached child, and its identity.
func IsChild() (string, bool) {
	ident := os.Getenv(EnvIdent)
	return ident, ident != ""
}

// Start re-executes the running binary with args as a detached daemon and
// returns its pid. It fails with ErrAlreadyRunning when the pid file names a
// live process of the same executable.
func Start(tool, ident string, args []string) (int, error) {
	p := PathsFor(tool, ident)
	if pid, ok := Running(p); ok {
		return 0, fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, ident, pid)
	}
	return start(p, ident, args)
}

// Acquire is called in the child. It locks the identity and writes the pid
// file. The returned release func removes the pid file and unlocks.
func Acquire(tool, ident string) (func(), error) {
	p := PathsFor(tool, ident)
	h, err := fslock.Lock(p.Lock)
	if err != nil {
		if errors.Is(err, fslock.ErrLockHeld) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, ident)
		}
		return nil, fmt.Errorf("daemon: lock %s: %w", p.Lock, err)
	}
	if err := os.WriteFile(p.PID, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		h.Unlock()
		return nil, fmt.Errorf("daemon: write pid file: %w", err)
	}
	return func() {
		os.Remove(p.PID)
		h.Unlock()
	}, nil
}

// Running reads the pid file and reports whether it names a live process
// running the same executable as this one.
func Running(p Paths) (int, bool) {
	b, err := os.ReadFile(p.PID)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := ps.FindProcess(pid)
	if err != nil || proc == nil {
		return 0, false
	}
	if !sameExecutable(proc.Executable()) {
		return 0, false
	}
	return pid, true
}

func sameExecutable(name string) bool {
	self, err := os.Executable()
	if err != nil {
		return false
	}
	base := filepath.Base(self)
	// process names may be truncated by the OS
	return base == name || (len(name) >= 15 && strings.HasPrefix(base, name))
}
