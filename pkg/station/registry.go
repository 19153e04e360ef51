package station

import (
	"context"
	"slices"
	"time"

	"github.com/go-logr/logr"
	"github.com/jellydator/ttlcache/v3"
	"github.com/robinbraemer/event"
)

// Info describes an associated station.
type Info struct {
	Addr     string    `json:"addr"`
	AID      uint16    `json:"aid"`
	JoinedAt time.Time `json:"joinedAt"`
	Event    string    `json:"event"`
}

// Registry tracks stations currently associated with the access point.
// It is informational only and never affects the connection count.
// Entries expire after a TTL so that lost leave notifications do not
// accumulate forever.
type Registry struct {
	cache *ttlcache.Cache[string, Info]
}

// NewRegistry returns a Registry whose entries expire after ttl.
// A ttl of 0 disables expiry.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	return &Registry{
		cache: ttlcache.New[string, Info](
			ttlcache.WithTTL[string, Info](ttl),
			ttlcache.WithDisableTouchOnHit[string, Info](),
		),
	}
}

// Observe records e. For a Left event it reports whether the station
// was known to the registry.
func (r *Registry) Observe(e *ConnectionEvent) (known bool) {
	key := e.Addr.String()
	switch e.Kind {
	case Joined:
		r.cache.Set(key, Info{
			Addr:     key,
			AID:      e.AID,
			JoinedAt: e.Time,
			Event:    e.ID.String(),
		}, ttlcache.DefaultTTL)
		return true
	case Left:
		known = r.cache.Get(key) != nil
		r.cache.Delete(key)
		return known
	}
	return false
}

// List returns the associated stations ordered by join time.
func (r *Registry) List() []Info {
	items := r.cache.Items()
	list := make([]Info, 0, len(items))
	for _, item := range items {
		list = append(list, item.Value())
	}
	slices.SortFunc(list, func(a, b Info) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	return list
}

// Len returns the number of associated stations.
func (r *Registry) Len() int { return r.cache.Len() }

// Subscribe keeps the registry up to date with events fired on mgr.
// Leaves for unknown stations are logged since they make the connection
// count drift below the number of associated stations.
func (r *Registry) Subscribe(mgr event.Manager, log logr.Logger) (unsubscribe func()) {
	return event.Subscribe(mgr, 0, func(e *ConnectionEvent) {
		if !r.Observe(e) {
			log.V(1).Info("leave without matching join", e.LogValues()...)
		}
	})
}

// Start runs the expiry loop until ctx is canceled.
func (r *Registry) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.cache.Stop()
	}()
	r.cache.Start()
	return nil
}
