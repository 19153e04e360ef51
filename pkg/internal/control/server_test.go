package control

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-faker/faker/v4"
	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"go.apnode.dev/apnode/pkg/indicator"
	"go.apnode.dev/apnode/pkg/station"
	"go.apnode.dev/apnode/pkg/tracker"
)

type fakeTracker struct{ count atomic.Int64 }

func (f *fakeTracker) Count() int64 { return f.count.Load() }
func (f *fakeTracker) Stats() tracker.Stats {
	return tracker.Stats{Connected: f.count.Load()}
}

var countRe = regexp.MustCompile(`class="count">\s*(-?\d+)\s*<`)

func pageCount(t *testing.T, body string) int64 {
	t.Helper()
	m := countRe.FindStringSubmatch(body)
	require.Len(t, m, 2, "page must embed the count: %s", body)
	n, err := strconv.ParseInt(m[1], 10, 64)
	require.NoError(t, err)
	return n
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func newTestServer(tr Tracker) (*Server, *indicator.Memory) {
	line := indicator.NewMemory(indicator.ManualIndicator, logr.Discard())
	return NewServer(DefaultConfig, Options{
		Tracker: tr,
		Manual:  indicator.NewManual(line),
		NodeID:  "test-node",
	}), line
}

func TestStatusPage(t *testing.T) {
	tr := new(fakeTracker)
	tr.count.Store(3)
	s, line := newTestServer(tr)

	rec := get(t, s.Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, int64(3), pageCount(t, body))
	assert.Contains(t, body, "<button")
	assert.Contains(t, body, "fetch(")
	assert.Contains(t, body, "/led/on")
	assert.Contains(t, body, "/led/off")
	assert.NotContains(t, body, "href=", "the manual routes are called in place")
	assert.Empty(t, line.Transitions(), "status has no side effects")
}

func TestStatusPage_NegativeCount(t *testing.T) {
	tr := new(fakeTracker)
	tr.count.Store(-2)
	s, _ := newTestServer(tr)
	assert.Equal(t, int64(-2), pageCount(t, get(t, s.Handler(), "/").Body.String()))
}

func TestLED_OnThenOff(t *testing.T) {
	s, line := newTestServer(new(fakeTracker))
	h := s.Handler()

	rec := get(t, h, "/led/on")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, AckOn, rec.Body.String())
	assert.True(t, line.Level())

	rec = get(t, h, "/led/off")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, AckOff, rec.Body.String())

	assert.False(t, line.Level())
	assert.False(t, s.opts.Manual.On())
	assert.Len(t, line.Transitions(), 2, "one write per request")
}

func TestLED_OffThenOn(t *testing.T) {
	s, line := newTestServer(new(fakeTracker))
	h := s.Handler()
	get(t, h, "/led/off")
	get(t, h, "/led/on")
	assert.True(t, line.Level())
	assert.True(t, s.opts.Manual.On())

	rec := get(t, h, "/api/led")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"on":true}`, rec.Body.String())
}

func TestRoutes_Unmatched(t *testing.T) {
	s, line := newTestServer(new(fakeTracker))
	h := s.Handler()

	assert.Equal(t, http.StatusNotFound, get(t, h, "/led").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/index.html").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/led/on", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, line.Transitions())
}

// fixture with a real tracker and a running pulse loop.
func startTracker(t *testing.T, hold time.Duration, mgr event.Manager) *tracker.Tracker {
	t.Helper()
	tr, err := tracker.New(tracker.Options{
		Config:    tracker.Config{HoldDuration: hold},
		Indicator: indicator.NewMemory(indicator.ConnectionIndicator, logr.Discard()),
		Event:     mgr,
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); _ = tr.Start(ctx) }()
	t.Cleanup(func() { cancel(); <-done })
	return tr
}

func randomMAC(t *testing.T) net.HardwareAddr {
	t.Helper()
	addr, err := net.ParseMAC(faker.MacAddress())
	require.NoError(t, err)
	return addr
}

func TestStatusPage_ConcurrentDuringHold(t *testing.T) {
	tr := startTracker(t, 200*time.Millisecond, nil)
	s, _ := newTestServer(tr)
	h := s.Handler()

	tr.OnEvent(station.NewJoin(randomMAC(t), 1))
	require.Eventually(t, func() bool { return tr.Stats().PulseActive }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	bodies := make([]string, 64)
	start := time.Now()
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			time.Sleep(time.Duration(i) * 5 * time.Millisecond)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			bodies[i] = rec.Body.String()
		}(i)
	}
	wg.Wait()
	assert.Less(t, time.Since(start), 2*time.Second, "status never waits for the hold")

	for _, body := range bodies {
		assert.Contains(t, []int64{0, 1}, pageCount(t, body))
	}
}

func TestStatusPage_TwoJoinsThenLeave(t *testing.T) {
	tr := startTracker(t, 10*time.Millisecond, nil)
	s, _ := newTestServer(tr)

	tr.OnEvent(station.NewJoin(randomMAC(t), 1))
	tr.OnEvent(station.NewJoin(randomMAC(t), 2))
	require.Eventually(t, func() bool { return tr.Count() == 2 }, time.Second, time.Millisecond)
	tr.OnEvent(station.NewLeave(randomMAC(t), 1, 8))

	assert.Equal(t, int64(1), pageCount(t, get(t, s.Handler(), "/").Body.String()))
}

type fakeStations []station.Info

func (f fakeStations) List() []station.Info { return f }

func TestAPIStatus(t *testing.T) {
	tr := new(fakeTracker)
	tr.count.Store(2)
	line := indicator.NewMemory(indicator.ManualIndicator, logr.Discard())
	manual := indicator.NewManual(line)
	manual.SetOn()
	s := NewServer(DefaultConfig, Options{
		Tracker:  tr,
		Manual:   manual,
		Stations: fakeStations{{Addr: "02:00:00:00:00:01", AID: 1}},
		NodeID:   "node-1",
	})

	rec := get(t, s.Handler(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "node-1", st.Node)
	assert.Equal(t, int64(2), st.Connected)
	assert.True(t, st.ManualIndicator)
	assert.Equal(t, 1, st.Stations)

	rec = get(t, s.Handler(), "/api/stations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "02:00:00:00:00:01")
}

func TestAPIStations_Empty(t *testing.T) {
	s, _ := newTestServer(new(fakeTracker))
	rec := get(t, s.Handler(), "/api/stations")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStream(t *testing.T) {
	mgr := event.New()
	tr := startTracker(t, time.Millisecond, mgr)
	line := indicator.NewMemory(indicator.ManualIndicator, logr.Discard())
	s := NewServer(DefaultConfig, Options{
		Tracker: tr,
		Manual:  indicator.NewManual(line),
		Event:   mgr,
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer c.CloseNow()

	var u Update
	require.NoError(t, wsjson.Read(ctx, c, &u))
	assert.Equal(t, Update{}, u)

	tr.OnEvent(station.NewLeave(randomMAC(t), 1, 0))
	require.NoError(t, wsjson.Read(ctx, c, &u))
	assert.Equal(t, int64(-1), u.Connected)

	require.NoError(t, c.Close(websocket.StatusNormalClosure, ""))
}

func TestServer_StartAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	tr := new(fakeTracker)
	tr.count.Store(5)
	line := indicator.NewMemory(indicator.ManualIndicator, logr.Discard())
	s := NewServer(Config{Bind: addr}, Options{Tracker: tr, Manual: indicator.NewManual(line)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(5), pageCount(t, body))

	cancel()
	assert.NoError(t, <-done)
}

func TestServer_StartBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s, _ := newTestServer(new(fakeTracker))
	s.cfg.Bind = ln.Addr().String()
	assert.Error(t, s.Start(context.Background()))
}

func TestConfig_Validate(t *testing.T) {
	_, errs := DefaultConfig.Validate()
	assert.Empty(t, errs)
	_, errs = Config{Bind: ""}.Validate()
	assert.Len(t, errs, 1)
	_, errs = Config{Bind: "2244"}.Validate()
	assert.Len(t, errs, 1)
}
