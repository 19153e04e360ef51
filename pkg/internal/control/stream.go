package control

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"

	"go.apnode.dev/apnode/pkg/tracker"
)

// Update is sent to websocket clients of GET /ws.
type Update struct {
	Connected   int64 `json:"connected"`
	PulseActive bool  `json:"pulseActive"`
}

func (s *Server) update() Update {
	stats := s.opts.Tracker.Stats()
	return Update{Connected: stats.Connected, PulseActive: stats.PulseActive}
}

// handleStream sends an Update on connect and after every count or pulse change.
// Bursts of changes are coalesced, a client always receives the latest state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	log := logr.FromContextOrDiscard(r.Context()).WithName("stream")
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.V(1).Info("websocket handshake failed", "error", err)
		return
	}
	defer c.CloseNow()

	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	for _, unsubscribe := range []func(){
		event.Subscribe(s.opts.Event, 0, func(*tracker.CountChangedEvent) { notify() }),
		event.Subscribe(s.opts.Event, 0, func(*tracker.PulseStartedEvent) { notify() }),
		event.Subscribe(s.opts.Event, 0, func(*tracker.PulseEndedEvent) { notify() }),
	} {
		defer unsubscribe()
	}

	// clients only listen, CloseRead handles their close frames
	ctx := c.CloseRead(r.Context())
	if err = s.send(ctx, c); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = c.Close(websocket.StatusNormalClosure, "")
			return
		case <-changed:
			if err = s.send(ctx, c); err != nil {
				log.V(1).Info("websocket client gone", "error", err)
				return
			}
		}
	}
}

func (s *Server) send(ctx context.Context, c *websocket.Conn) error {
	return wsjson.Write(ctx, c, s.update())
}
