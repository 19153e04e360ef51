// Package station defines the link-layer station events the node reacts to
// and a registry of currently associated stations.
package station

import (
	"net"
	"time"

	"github.com/rs/xid"
)

// Kind is the kind of a ConnectionEvent.
type Kind uint8

const (
	Joined Kind = iota + 1
	Left
)

func (k Kind) String() string {
	switch k {
	case Joined:
		return "joined"
	case Left:
		return "left"
	}
	return "unknown"
}

// ConnectionEvent is fired when a station associated with or
// disassociated from the access point.
//
// It is fired once per notification from the radio and is never persisted.
type ConnectionEvent struct {
	// ID identifies this notification in logs and spans.
	ID xid.ID
	// Kind is Joined or Left.
	Kind Kind
	// Addr is the station's hardware address.
	Addr net.HardwareAddr
	// AID is the association id assigned by the access point.
	// It may be 0 if the event source does not report it.
	AID uint16
	// Reason is the disassociation reason code, only set for Left.
	Reason uint16
	// Time the notification was received.
	Time time.Time
}

// NewJoin returns a Joined event for addr.
func NewJoin(addr net.HardwareAddr, aid uint16) ConnectionEvent {
	return ConnectionEvent{
		ID:   xid.New(),
		Kind: Joined,
		Addr: addr,
		AID:  aid,
		Time: time.Now(),
	}
}

// NewLeave returns a Left event for addr.
func NewLeave(addr net.HardwareAddr, aid, reason uint16) ConnectionEvent {
	return ConnectionEvent{
		ID:     xid.New(),
		Kind:   Left,
		Addr:   addr,
		AID:    aid,
		Reason: reason,
		Time:   time.Now(),
	}
}

// LogValues returns key/value pairs for structured logging.
func (e *ConnectionEvent) LogValues() []any {
	kv := []any{"mac", e.Addr.String(), "aid", e.AID, "event", e.ID.String()}
	if e.Kind == Left {
		kv = append(kv, "reason", e.Reason)
	}
	return kv
}
