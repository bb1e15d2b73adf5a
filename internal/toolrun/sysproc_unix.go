//go:build !windows

package toolrun

import (
    "os/exec"
    "syscall"
)

func newSysProcAttrForGroup() *syscall.SysProcAttr {
    return &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup takes down the tool and anything it spawned.
func killProcessGroup(cmd *exec.Cmd) error {
    if cmd.Process == nil { return nil }
    pid := cmd.Process.Pid
    if pid <= 0 { return nil }
    if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
        return cmd.Process.Kill()
    }
    return nil
}
