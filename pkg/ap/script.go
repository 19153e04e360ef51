package ap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"go.apnode.dev/apnode/pkg/station"
	"go.apnode.dev/apnode/pkg/util/validation"
)

// Script replays station events from a line oriented script:
//
//	# comment
//	join 02:00:00:00:00:01 1
//	sleep 500ms
//	leave 02:00:00:00:00:01 1 8
//
// join takes an optional aid, leave an optional aid and reason code.
// After the last line the source stays attached until canceled.
type Script struct {
	path  string
	stdin io.Reader

	r         io.ReadCloser
	closeOnce sync.Once
	closeErr  error
}

var _ Source = (*Script)(nil)

// NewScript returns a Source reading the script at path, or stdin if path is "-".
func NewScript(path string, stdin io.Reader) *Script {
	return &Script{path: path, stdin: stdin}
}

func (s *Script) Open(context.Context) error {
	if s.path == "-" {
		if rc, ok := s.stdin.(io.ReadCloser); ok {
			s.r = rc
		} else {
			s.r = io.NopCloser(s.stdin)
		}
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	s.r = f
	return nil
}

func (s *Script) Run(ctx context.Context, emit func(station.ConnectionEvent)) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("script", s.path)
	// unblocks a pending read on cancellation
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	sc := bufio.NewScanner(s.r)
	for line := 1; sc.Scan(); line++ {
		if ctx.Err() != nil {
			return nil
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cmd, err := parseScriptLine(text)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", s.path, line, err)
		}
		if cmd.sleep > 0 {
			if !sleep(ctx, cmd.sleep) {
				return nil
			}
			continue
		}
		emit(cmd.event)
	}
	if err := sc.Err(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", s.path, err)
	}
	log.V(1).Info("station event script finished")
	<-ctx.Done()
	return nil
}

func (s *Script) Close() error {
	s.closeOnce.Do(func() {
		if s.r != nil {
			s.closeErr = s.r.Close()
		}
	})
	return s.closeErr
}

type scriptCmd struct {
	event station.ConnectionEvent
	sleep time.Duration
}

func parseScriptLine(text string) (scriptCmd, error) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "sleep":
		if len(fields) != 2 {
			return scriptCmd{}, fmt.Errorf("usage: sleep <duration>")
		}
		d, err := time.ParseDuration(fields[1])
		if err != nil {
			return scriptCmd{}, err
		}
		if d <= 0 {
			return scriptCmd{}, fmt.Errorf("sleep duration must be positive")
		}
		return scriptCmd{sleep: d}, nil
	case "join", "leave":
		if len(fields) < 2 {
			return scriptCmd{}, fmt.Errorf("usage: %s <mac> [aid]", fields[0])
		}
		addr, err := validation.ValidMAC(fields[1])
		if err != nil {
			return scriptCmd{}, fmt.Errorf("invalid station address %q: %w", fields[1], err)
		}
		nums := make([]uint16, 2)
		for i, f := range fields[2:] {
			if i >= len(nums) || (fields[0] == "join" && i > 0) {
				return scriptCmd{}, fmt.Errorf("too many arguments for %s", fields[0])
			}
			n, err := strconv.ParseUint(f, 10, 16)
			if err != nil {
				return scriptCmd{}, fmt.Errorf("invalid number %q: %w", f, err)
			}
			nums[i] = uint16(n)
		}
		if fields[0] == "join" {
			return scriptCmd{event: station.NewJoin(addr, nums[0])}, nil
		}
		return scriptCmd{event: station.NewLeave(addr, nums[0], nums[1])}, nil
	}
	return scriptCmd{}, fmt.Errorf("unknown command %q", fields[0])
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
