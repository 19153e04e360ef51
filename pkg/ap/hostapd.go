package ap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/rs/xid"

	"go.apnode.dev/apnode/pkg/station"
	"go.apnode.dev/apnode/pkg/util/errs"
	"go.apnode.dev/apnode/pkg/util/validation"
)

// hostapd control interface events.
const (
	eventConnected    = "AP-STA-CONNECTED"
	eventDisconnected = "AP-STA-DISCONNECTED"
)

const (
	ctrlBufSize        = 4096
	ctrlRequestTimeout = 2 * time.Second
)

// Hostapd receives station events from the hostapd control interface.
type Hostapd struct {
	path string

	conn  *net.UnixConn
	local string
	// events received while waiting for a command reply
	backlog []string
}

var _ Source = (*Hostapd)(nil)

// NewHostapd returns a Source for the hostapd control socket at path.
func NewHostapd(path string) *Hostapd {
	return &Hostapd{path: path}
}

// Open connects to the control socket and attaches to its event stream.
func (h *Hostapd) Open(ctx context.Context) error {
	h.local = filepath.Join(os.TempDir(), fmt.Sprintf("apnode-%d-%s", os.Getpid(), xid.New()))
	conn, err := net.DialUnix("unixgram",
		&net.UnixAddr{Name: h.local, Net: "unixgram"},
		&net.UnixAddr{Name: h.path, Net: "unixgram"})
	if err != nil {
		return fmt.Errorf("error connecting to hostapd at %s: %w", h.path, err)
	}
	h.conn = conn

	reply, err := h.request(ctx, "ATTACH")
	if err != nil {
		_ = h.Close()
		return err
	}
	if strings.TrimSpace(reply) != "OK" {
		_ = h.Close()
		return fmt.Errorf("hostapd refused to attach: %q", reply)
	}
	logr.FromContextOrDiscard(ctx).Info("attached to hostapd", "path", h.path)
	return nil
}

// request sends cmd and returns the reply. Unsolicited events that arrive
// before the reply are kept for Run.
func (h *Hostapd) request(ctx context.Context, cmd string) (string, error) {
	deadline := time.Now().Add(ctrlRequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := h.conn.SetDeadline(deadline); err != nil {
		return "", err
	}
	defer h.conn.SetDeadline(time.Time{})

	if _, err := h.conn.Write([]byte(cmd)); err != nil {
		return "", fmt.Errorf("error sending %s to hostapd: %w", cmd, err)
	}
	buf := make([]byte, ctrlBufSize)
	for {
		n, err := h.conn.Read(buf)
		if err != nil {
			return "", fmt.Errorf("error reading hostapd reply to %s: %w", cmd, err)
		}
		msg := string(buf[:n])
		if strings.HasPrefix(msg, "<") {
			h.backlog = append(h.backlog, msg)
			continue
		}
		return msg, nil
	}
}

// Run reads events until ctx is canceled.
func (h *Hostapd) Run(ctx context.Context, emit func(station.ConnectionEvent)) error {
	if h.conn == nil {
		return errors.New("hostapd source is not open")
	}
	log := logr.FromContextOrDiscard(ctx)

	stop := context.AfterFunc(ctx, func() {
		_ = h.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	handle := func(msg string) {
		e, err := parseHostapdEvent(msg)
		if err != nil {
			if errs.IsSilent(err) {
				log.V(2).Info("ignoring hostapd message", "msg", strings.TrimSpace(msg))
			} else {
				log.Info("invalid hostapd event", "msg", strings.TrimSpace(msg), "error", err)
			}
			return
		}
		if e.Kind == station.Joined {
			e.AID = h.lookupAID(ctx, e.Addr)
		}
		emit(e)
	}

	buf := make([]byte, ctrlBufSize)
	for {
		for len(h.backlog) != 0 {
			msg := h.backlog[0]
			h.backlog = h.backlog[1:]
			handle(msg)
		}
		// a lookup may have cleared the deadline set on cancellation
		if ctx.Err() != nil {
			return nil
		}
		n, err := h.conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("error reading hostapd events: %w", err)
		}
		handle(string(buf[:n]))
	}
}

// lookupAID asks hostapd for the association id of addr, 0 if unknown.
func (h *Hostapd) lookupAID(ctx context.Context, addr net.HardwareAddr) uint16 {
	reply, err := h.request(ctx, "STA "+addr.String())
	if err != nil {
		logr.FromContextOrDiscard(ctx).V(1).Info("could not look up station aid", "mac", addr.String(), "error", err)
		return 0
	}
	return parseStaAID(reply)
}

// Close detaches from hostapd and removes the local socket.
func (h *Hostapd) Close() error {
	if h.conn == nil {
		return nil
	}
	_, _ = h.conn.Write([]byte("DETACH"))
	err := h.conn.Close()
	h.conn = nil
	if rmErr := os.Remove(h.local); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

// parseHostapdEvent parses an unsolicited control interface message
// such as "<3>AP-STA-CONNECTED 02:00:00:00:01:00".
// Messages that are not station events return a SilentError.
func parseHostapdEvent(msg string) (station.ConnectionEvent, error) {
	msg = strings.TrimSpace(msg)
	if i := strings.IndexByte(msg, '>'); strings.HasPrefix(msg, "<") && i > 0 {
		msg = msg[i+1:]
	}
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return station.ConnectionEvent{}, errs.NewSilentErr("empty message")
	}
	var kind station.Kind
	switch fields[0] {
	case eventConnected:
		kind = station.Joined
	case eventDisconnected:
		kind = station.Left
	default:
		return station.ConnectionEvent{}, errs.NewSilentErr("not a station event: %s", fields[0])
	}
	if len(fields) < 2 {
		return station.ConnectionEvent{}, fmt.Errorf("%s without station address", fields[0])
	}
	addr, err := validation.ValidMAC(fields[1])
	if err != nil {
		return station.ConnectionEvent{}, fmt.Errorf("invalid station address %q: %w", fields[1], err)
	}
	if kind == station.Joined {
		return station.NewJoin(addr, 0), nil
	}
	return station.NewLeave(addr, 0, 0), nil
}

// parseStaAID extracts aid=N from a "STA <addr>" reply.
func parseStaAID(reply string) uint16 {
	s := bufio.NewScanner(strings.NewReader(reply))
	for s.Scan() {
		k, v, ok := strings.Cut(s.Text(), "=")
		if !ok || k != "aid" {
			continue
		}
		aid, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return 0
		}
		return uint16(aid)
	}
	return 0
}
