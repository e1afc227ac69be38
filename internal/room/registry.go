package room

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"docroom/api/internal/auth"
	"docroom/api/internal/directory"
	"docroom/api/internal/metrics"
)

type registryEntry struct {
	adapter        *Adapter
	organizationID string
	lastUsed       time.Time
}

// Registry keeps one mounted Adapter per document and user, bound to the
// organization that was active when it mounted. Adapters idle
// for longer than the idle TTL are unmounted on the next registry access.
type Registry struct {
	resolver     RosterResolver
	idleTTL      time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	mu    sync.Mutex
	rooms map[string]*registryEntry
}

type RegistryOption func(*Registry)

func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

func WithMountFetchTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.fetchTimeout = d }
}

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

func withClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(resolver RosterResolver, opts ...RegistryOption) *Registry {
	r := &Registry{
		resolver: resolver,
		idleTTL:  30 * time.Minute,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		rooms:    make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func registryKey(documentID, subject string) string {
	return documentID + "\x00" + subject
}

// Mount returns the adapter for the document and caller, creating and
// mounting one if needed. An adapter mounted under a different organization
// is replaced. reused reports whether an existing adapter was returned.
func (r *Registry) Mount(documentID string, claims auth.Claims) (adapter *Adapter, reused bool) {
	key := registryKey(documentID, claims.Subject())
	orgID, _ := directory.OrganizationID(claims)
	now := r.now()

	var replaced *Adapter
	r.mu.Lock()
	r.sweepLocked(now)
	entry, ok := r.rooms[key]
	if ok && entry.organizationID != orgID {
		replaced = entry.adapter
		ok = false
	}
	if ok {
		entry.lastUsed = now
		adapter = entry.adapter
	} else {
		adapter = NewAdapter(documentID, claims, r.resolver,
			WithFetchTimeout(r.fetchTimeout),
			WithAdapterLogger(r.logger),
		)
		r.rooms[key] = &registryEntry{adapter: adapter, organizationID: orgID, lastUsed: now}
	}
	active := len(r.rooms)
	r.mu.Unlock()

	if replaced != nil {
		replaced.Unmount()
		r.logger.Info("organization changed, remounting room", "room_id", documentID, "subject", claims.Subject(), "organization_id", orgID)
	}
	adapter.Mount()
	r.metrics.RecordRoomMount(ok)
	r.metrics.SetRoomsActive(active)
	if !ok {
		r.logger.Info("room mounted", "room_id", documentID, "subject", claims.Subject())
	}
	return adapter, ok
}

// Get returns the adapter mounted for the document and caller under the
// caller's current organization.
func (r *Registry) Get(documentID string, claims auth.Claims) (*Adapter, bool) {
	orgID, _ := directory.OrganizationID(claims)
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)
	entry, ok := r.rooms[registryKey(documentID, claims.Subject())]
	if !ok || entry.organizationID != orgID {
		return nil, false
	}
	entry.lastUsed = now
	return entry.adapter, true
}

// Unmount tears down the adapter for the document and caller, reporting
// whether one was mounted.
func (r *Registry) Unmount(documentID, subject string) bool {
	key := registryKey(documentID, subject)
	r.mu.Lock()
	entry, ok := r.rooms[key]
	if ok {
		delete(r.rooms, key)
	}
	active := len(r.rooms)
	r.mu.Unlock()

	if !ok {
		return false
	}
	entry.adapter.Unmount()
	r.metrics.SetRoomsActive(active)
	r.logger.Info("room unmounted", "room_id", documentID, "subject", subject)
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Close unmounts every adapter.
func (r *Registry) Close() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, entry := range rooms {
		entry.adapter.Unmount()
	}
	r.metrics.SetRoomsActive(0)
}

func (r *Registry) sweepLocked(now time.Time) {
	if r.idleTTL <= 0 {
		return
	}
	for key, entry := range r.rooms {
		if now.Sub(entry.lastUsed) > r.idleTTL {
			entry.adapter.Unmount()
			delete(r.rooms, key)
			r.logger.Debug("evicted idle room", "room_id", entry.adapter.RoomID())
		}
	}
}
