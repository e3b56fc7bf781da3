//go:build linux

package restart

import "syscall"

// reboot flushes filesystems and asks the kernel to restart. It needs
// CAP_SYS_BOOT; without it the error is returned and the caller exits.
func reboot() error {
	syscall.Sync()
	return syscall.Reboot(syscall.LINUX_REBOOT_CMD_RESTART)
}
