//go:build !windows
// +build !windows

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

func start(p Paths, ident string, args []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("daemon: %w", err)
	}
	stdout, err := os.OpenFile(p.Out, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("daemon: %w", err)
	}
	defer stdout.Close()
	stderr, err := os.OpenFile(p.Err, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("daemon: %w", err)
	}
	defer stderr.Close()

	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), EnvIdent+"="+ident)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("daemon: start: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("daemon: release: %w", err)
	}
	return pid, nil
}
