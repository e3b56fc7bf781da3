// Package wifi re-associates the wireless link by running a configurable
// command and then waits until a probe address is reachable.
package wifi

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/shlex"

	"solarmatrix-go/errcode"
	"solarmatrix-go/types"
	"solarmatrix-go/x/logx"
	"solarmatrix-go/x/timex"
)

// DefaultCommand lets nmcli prompt for the PSK, which Reconnect writes to the
// command's stdin. A template that names {psk} puts the secret into argv where
// other local users can read it from /proc.
const (
	DefaultCommand     = "nmcli --ask device wifi connect {ssid}"
	DefaultLinkTimeout = 15 * time.Second
	dialTimeout        = 2 * time.Second
)

type Manager struct {
	argv        []string
	ssid, psk   string
	probe       string
	linkTimeout time.Duration
	log         *logx.Logger
}

// New validates the command template. An empty Command uses DefaultCommand;
// the literal "none" disables the command and only probes the link.
func New(cfg types.WiFiConfig) (*Manager, error) {
	m := &Manager{
		ssid:        cfg.SSID,
		psk:         cfg.PSK,
		probe:       cfg.ProbeAddr,
		linkTimeout: timex.Seconds(cfg.LinkTimeoutS),
		log:         logx.New("wifi"),
	}
	if m.linkTimeout <= 0 {
		m.linkTimeout = DefaultLinkTimeout
	}

	tmpl := strings.TrimSpace(cfg.Command)
	switch tmpl {
	case "none":
		return m, nil
	case "":
		tmpl = DefaultCommand
	}
	argv, err := shlex.Split(tmpl)
	if err != nil {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "wifi", Msg: "command", Err: err}
	}
	if len(argv) == 0 {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "wifi", Msg: "empty command"}
	}
	m.argv = argv
	return m, nil
}

// Args returns the command with credentials substituted.
func (m *Manager) Args() []string {
	if len(m.argv) == 0 {
		return nil
	}
	r := strings.NewReplacer("{ssid}", m.ssid, "{psk}", m.psk)
	out := make([]string, len(m.argv))
	for i, a := range m.argv {
		out[i] = r.Replace(a)
	}
	return out
}

// Connect is Reconnect under the name used at startup.
func (m *Manager) Connect(ctx context.Context) error { return m.Reconnect(ctx) }

// Reconnect runs the association command and waits for the link.
func (m *Manager) Reconnect(ctx context.Context) error {
	if args := m.Args(); len(args) > 0 {
		ctx, cancel := context.WithTimeout(ctx, m.linkTimeout)
		defer cancel()
		var stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Stderr = &stderr
		if m.psk != "" {
			cmd.Stdin = strings.NewReader(m.psk + "\n")
		}
		if err := cmd.Run(); err != nil {
			msg := strings.TrimSpace(stderr.String())
			return &errcode.E{C: errcode.Reconnect, Op: "wifi", Msg: msg, Err: err}
		}
		m.log.Debugf("associated with %q", m.ssid)
	}
	return m.waitLink(ctx)
}

func (m *Manager) waitLink(ctx context.Context) error {
	if m.probe == "" {
		return nil
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	eb.MaxInterval = 2 * time.Second
	eb.MaxElapsedTime = m.linkTimeout

	var d net.Dialer
	op := func() error {
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		c, err := d.DialContext(dctx, "tcp", m.probe)
		if err != nil {
			return err
		}
		return c.Close()
	}
	notify := func(err error, next time.Duration) {
		m.log.Debugf("link not up yet (%v), next probe in %s", err, next)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(eb, ctx), notify); err != nil {
		return &errcode.E{C: errcode.Reconnect, Op: "wifi", Msg: fmt.Sprintf("probe %s", m.probe), Err: err}
	}
	return nil
}
