// Package control is the node's local HTTP control surface. It reports
// the connection count and switches the manual indicator.
package control

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"go.apnode.dev/apnode/pkg/station"
	"go.apnode.dev/apnode/pkg/tracker"
)

// Tracker is the read side of the connection tracker.
type Tracker interface {
	// Count must not block on a pending indication.
	Count() int64
	Stats() tracker.Stats
}

// Switch is the manual indicator.
type Switch interface {
	SetOn()
	SetOff()
	On() bool
}

// StationLister lists associated stations.
type StationLister interface {
	List() []station.Info
}

// Options are the collaborators of a Server.
type Options struct {
	Tracker  Tracker       // required
	Manual   Switch        // required
	Stations StationLister // optional
	// Event is used to stream count changes to websocket clients.
	// If nil, the stream only sends the initial snapshot.
	Event   event.Manager
	NodeID  string
	Started time.Time
}

func NewServer(cfg Config, opts Options) *Server {
	if opts.Event == nil {
		opts.Event = event.Nop
	}
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	return &Server{
		cfg:  cfg,
		opts: opts,
	}
}

type Server struct {
	cfg  Config
	opts Options
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleStatusPage)
	mux.HandleFunc("GET /led/on", s.handleLEDOn)
	mux.HandleFunc("GET /led/off", s.handleLEDOff)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/led", s.handleLED)
	mux.HandleFunc("GET /api/stations", s.handleStations)
	mux.HandleFunc("GET /ws", s.handleStream)
	return mux
}

// Start serves the control surface until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("starting control server", "bind", s.cfg.Bind)

	hs := &http.Server{
		Addr: s.cfg.Bind,
		Handler: h2c.NewHandler(otelhttp.NewHandler(s.Handler(), "control"), &http2.Server{
			IdleTimeout: time.Second * 30,
		}),
		ReadTimeout:       time.Second * 5,
		ReadHeaderTimeout: time.Second * 5,
		// no WriteTimeout, websocket streams are long-lived
		IdleTimeout: time.Second * 30,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return hs.Shutdown(stopCtx)
	})
	eg.Go(func() error { return ignoreClosed(hs.Serve(ln)) })

	return eg.Wait()
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
