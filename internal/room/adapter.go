// Package room bridges an organization roster to the lookup hooks of the
// real-time collaboration provider.
package room

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"docroom/api/internal/auth"
	"docroom/api/internal/directory"
)

// State is the lifecycle position of an Adapter.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// ErrUnmounted is returned by Wait once the adapter has been torn down.
var ErrUnmounted = errors.New("room adapter unmounted")

// UserInfo is what the provider renders for a user id.
type UserInfo struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// RoomInfo is provider-defined room metadata. Rooms metadata is not modeled,
// so no value of this type is ever produced.
type RoomInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// RosterResolver produces the roster for a set of session claims.
type RosterResolver interface {
	ResolveOrganizationUsers(ctx context.Context, claims auth.Claims) directory.Result
}

type snapshot struct {
	users   []directory.UserSummary
	byID    map[string]directory.UserSummary
	outcome directory.Outcome
}

func newSnapshot(result directory.Result) *snapshot {
	users := result.Users
	if users == nil {
		users = []directory.UserSummary{}
	}
	byID := make(map[string]directory.UserSummary, len(users))
	for _, user := range users {
		if _, ok := byID[user.ID]; !ok {
			byID[user.ID] = user
		}
	}
	return &snapshot{users: users, byID: byID, outcome: result.Outcome}
}

// Adapter holds the roster of one mounted room. The roster is fetched once on
// Mount and published as an immutable snapshot; the lookup callbacks only
// ever read that snapshot.
type Adapter struct {
	roomID   string
	claims   auth.Claims
	resolver RosterResolver
	timeout  time.Duration
	logger   *slog.Logger

	state    atomic.Int32
	roster   atomic.Pointer[snapshot]
	unmount  atomic.Bool
	mount    sync.Once
	teardown sync.Once
	ready    chan struct{}
	done     chan struct{}
}

type AdapterOption func(*Adapter)

// WithFetchTimeout bounds the mount fetch. Zero means no bound.
func WithFetchTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.timeout = d }
}

func WithAdapterLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAdapter(roomID string, claims auth.Claims, resolver RosterResolver, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		roomID:   roomID,
		claims:   claims,
		resolver: resolver,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) RoomID() string { return a.roomID }

func (a *Adapter) State() State { return State(a.state.Load()) }

// Mount starts the one roster fetch of this adapter. Later calls are no-ops.
// The fetch runs detached from any request context.
func (a *Adapter) Mount() {
	a.mount.Do(func() {
		a.state.Store(int32(StateLoading))
		go a.fetch()
	})
}

func (a *Adapter) fetch() {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	result := a.resolver.ResolveOrganizationUsers(ctx, a.claims)
	if a.unmount.Load() {
		a.logger.Debug("discarding roster for unmounted room", "room_id", a.roomID)
		return
	}
	a.roster.Store(newSnapshot(result))
	a.state.Store(int32(StateReady))
	close(a.ready)
}

// Unmount tears the adapter down. An in-flight fetch is left to finish and
// its result is dropped.
func (a *Adapter) Unmount() {
	a.teardown.Do(func() {
		a.unmount.Store(true)
		close(a.done)
	})
}

func (a *Adapter) Unmounted() bool { return a.unmount.Load() }

// Wait blocks until the roster is published, the adapter is unmounted or ctx
// is done.
func (a *Adapter) Wait(ctx context.Context) error {
	select {
	case <-a.ready:
		return nil
	default:
	}
	select {
	case <-a.ready:
		return nil
	case <-a.done:
		return ErrUnmounted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Roster returns the published roster, or an empty one before Ready.
func (a *Adapter) Roster() []directory.UserSummary {
	snap := a.roster.Load()
	if snap == nil {
		return []directory.UserSummary{}
	}
	out := make([]directory.UserSummary, len(snap.users))
	copy(out, snap.users)
	return out
}

// Outcome is the resolver outcome behind the published roster, empty before
// Ready.
func (a *Adapter) Outcome() directory.Outcome {
	if snap := a.roster.Load(); snap != nil {
		return snap.outcome
	}
	return ""
}

// ResolveUsersByID maps each id to its roster entry, keeping input order.
// Unknown ids get an anonymous placeholder.
func (a *Adapter) ResolveUsersByID(userIDs []string) []UserInfo {
	snap := a.roster.Load()
	infos := make([]UserInfo, len(userIDs))
	for i, id := range userIDs {
		infos[i] = UserInfo{Name: directory.AnonymousName}
		if snap == nil {
			continue
		}
		if user, ok := snap.byID[id]; ok {
			infos[i] = UserInfo{Name: user.Name, Avatar: user.Avatar}
		}
	}
	return infos
}

// ResolveMentionSuggestions returns the ids of roster members whose name
// contains text, ignoring case. Empty text matches everyone.
func (a *Adapter) ResolveMentionSuggestions(text string) []string {
	snap := a.roster.Load()
	ids := make([]string, 0)
	if snap == nil {
		return ids
	}
	needle := strings.ToLower(text)
	for _, user := range snap.users {
		if needle == "" || strings.Contains(strings.ToLower(user.Name), needle) {
			ids = append(ids, user.ID)
		}
	}
	return ids
}

func (a *Adapter) ResolveRoomsInfo() []RoomInfo {
	return []RoomInfo{}
}
