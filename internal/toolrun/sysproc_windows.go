//go:build windows

package toolrun

import (
    "fmt"
    "os/exec"
    "syscall"

    winapi "golang.org/x/sys/windows"
)

func newSysProcAttrForGroup() *syscall.SysProcAttr {
    // Create a new process group so taskkill /T terminates the entire tree
    return &syscall.SysProcAttr{CreationFlags: winapi.CREATE_NEW_PROCESS_GROUP}
}

func killProcessGroup(cmd *exec.Cmd) error {
    if cmd.Process == nil { return nil }
    pid := cmd.Process.Pid
    if pid <= 0 { return nil }
    return exec.Command("taskkill", "/PID", fmt.Sprint(pid), "/T", "/F").Run()
}
