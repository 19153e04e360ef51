package control

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"go.apnode.dev/apnode/pkg/station"
	"go.apnode.dev/apnode/pkg/version"
)

// Acknowledgements of the manual indicator routes.
const (
	AckOn  = "LED on"
	AckOff = "LED off"
)

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	count := s.opts.Tracker.Count()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := statusPage(count).WriteTo(w); err != nil {
		logr.FromContextOrDiscard(r.Context()).V(1).Info("error writing status page", "error", err)
	}
}

func (s *Server) handleLEDOn(w http.ResponseWriter, r *http.Request) {
	s.opts.Manual.SetOn()
	writeAck(w, AckOn)
}

func (s *Server) handleLEDOff(w http.ResponseWriter, r *http.Request) {
	s.opts.Manual.SetOff()
	writeAck(w, AckOff)
}

func writeAck(w http.ResponseWriter, ack string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, ack)
}

// Status is the body of GET /api/status.
type Status struct {
	Node            string `json:"node"`
	Version         string `json:"version"`
	Connected       int64  `json:"connected"`
	ManualIndicator bool   `json:"manualIndicator"`
	PulseActive     bool   `json:"pulseActive"`
	Pending         int    `json:"pending"`
	Joins           int64  `json:"joins"`
	Leaves          int64  `json:"leaves"`
	Pulses          int64  `json:"pulses"`
	Stations        int    `json:"stations"`
	Uptime          string `json:"uptime"`
}

func (s *Server) status() Status {
	stats := s.opts.Tracker.Stats()
	st := Status{
		Node:            s.opts.NodeID,
		Version:         version.String(),
		Connected:       stats.Connected,
		ManualIndicator: s.opts.Manual.On(),
		PulseActive:     stats.PulseActive,
		Pending:         stats.Pending,
		Joins:           stats.Joins,
		Leaves:          stats.Leaves,
		Pulses:          stats.Pulses,
		Uptime:          time.Since(s.opts.Started).Round(time.Second).String(),
	}
	if s.opts.Stations != nil {
		st.Stations = len(s.opts.Stations.List())
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.status())
}

func (s *Server) handleLED(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, struct {
		On bool `json:"on"`
	}{On: s.opts.Manual.On()})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	list := []station.Info{}
	if s.opts.Stations != nil {
		list = s.opts.Stations.List()
	}
	writeJSON(w, r, list)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logr.FromContextOrDiscard(r.Context()).V(1).Info("error writing response", "error", err)
	}
}
