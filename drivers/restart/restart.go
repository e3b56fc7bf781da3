// Package restart reboots the device when acquisition gives up.
package restart

import (
	"os"
	"os/exec"
	"time"

	"github.com/google/shlex"

	"solarmatrix-go/x/logx"
)

var sysReboot = reboot

// Rebooter restarts the host. Restart does not return on success.
type Rebooter struct {
	// Command, when set, is run instead of the reboot syscall.
	Command string
	// Exit is called if every other method failed. Defaults to os.Exit.
	Exit func(code int)

	log *logx.Logger
}

func New(command string) *Rebooter {
	return &Rebooter{Command: command, Exit: os.Exit, log: logx.New("restart")}
}

func (r *Rebooter) Restart() {
	if r.log == nil {
		r.log = logx.New("restart")
	}
	if r.Command != "" {
		if err := r.runCommand(); err != nil {
			r.log.Errorf("reboot command: %v", err)
		} else {
			// the command normally kills us; give it a moment
			time.Sleep(5 * time.Second)
		}
	}
	if err := sysReboot(); err != nil {
		r.log.Errorf("reboot: %v", err)
	}
	// A supervisor (systemd Restart=always) brings us back.
	exit := r.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)
}

func (r *Rebooter) runCommand() error {
	argv, err := shlex.Split(r.Command)
	if err != nil {
		return err
	}
	if len(argv) == 0 {
		return nil
	}
	return exec.Command(argv[0], argv[1:]...).Run()
}
