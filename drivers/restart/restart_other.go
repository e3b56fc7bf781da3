//go:build !linux

package restart

import "errors"

func reboot() error { return errors.New("reboot not supported on this platform") }
