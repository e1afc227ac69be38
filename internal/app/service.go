package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"docroom/api/internal/auth"
	"docroom/api/internal/config"
	"docroom/api/internal/directory"
	"docroom/api/internal/metrics"
	"docroom/api/internal/rbac"
	"docroom/api/internal/room"
	"docroom/api/internal/session"
	"docroom/api/internal/store"
	"docroom/api/internal/util"
	"github.com/golang-jwt/jwt/v5"
)

type documentStore interface {
	GetDocumentsByIDs(context.Context, []string) ([]store.DocumentRecord, error)
	GetDocument(context.Context, string) (store.Document, error)
	Ping(context.Context) error
}

// claimsSource turns a session credential into verified claims. Both the
// JWT verifier and the Redis session store satisfy it.
type claimsSource interface {
	Claims(context.Context, string) (auth.Claims, error)
}

type pinger interface {
	Ping(context.Context) error
}

// Session is the caller identity derived from verified claims.
type Session struct {
	Claims         auth.Claims
	UserID         string
	OrganizationID string
	Role           rbac.Role
}

// RoomView is returned when a room is mounted.
type RoomView struct {
	Provider     room.ProviderConfig `json:"provider"`
	State        string              `json:"state"`
	RosterStatus string              `json:"rosterStatus"`
}

type Service struct {
	cfg      config.Config
	store    documentStore
	sessions claimsSource
	resolver room.RosterResolver
	rooms    *room.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(cfg config.Config, documents documentStore, sessions claimsSource, resolver room.RosterResolver, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		store:    documents,
		sessions: sessions,
		resolver: resolver,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rooms = room.NewRegistry(resolver,
		room.WithIdleTTL(cfg.RoomIdleTTL),
		room.WithMountFetchTimeout(cfg.DirectoryTimeout),
		room.WithRegistryLogger(s.logger),
		room.WithRegistryMetrics(s.metrics),
	)
	return s
}

// Close unmounts every room.
func (s *Service) Close() {
	s.rooms.Close()
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if p, ok := s.sessions.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("session backend: %w", err)
		}
	}
	return nil
}

func (s *Service) SessionFromCredential(ctx context.Context, credential string) (Session, error) {
	claims, err := s.sessions.Claims(ctx, credential)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			s.metrics.RecordSessionFailure("expired")
		case errors.Is(err, auth.ErrInvalidToken):
			s.metrics.RecordSessionFailure("invalid")
		case errors.Is(err, session.ErrNotFound):
			s.metrics.RecordSessionFailure("not_found")
			return Session{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
		default:
			s.metrics.RecordSessionFailure("error")
		}
		return Session{}, err
	}
	orgID, _ := directory.OrganizationID(claims)
	return Session{
		Claims:         claims,
		UserID:         claims.Subject(),
		OrganizationID: orgID,
		Role:           rbac.Normalize(directory.OrganizationRole(claims)),
	}, nil
}

// ResolveOrganizationUsers returns the caller's organization roster. It never
// fails; see directory.Result.Outcome for why a roster may be empty.
func (s *Service) ResolveOrganizationUsers(ctx context.Context, session Session) directory.Result {
	return s.resolver.ResolveOrganizationUsers(ctx, session.Claims)
}

// FetchDocuments looks documents up by id without any transformation.
func (s *Service) FetchDocuments(ctx context.Context, ids []string) ([]store.DocumentRecord, error) {
	records, err := s.store.GetDocumentsByIDs(ctx, ids)
	s.metrics.RecordDocumentFetch(err)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	return records, nil
}

// MountRoom mounts the caller's adapter for the document and waits briefly
// for its roster.
func (s *Service) MountRoom(ctx context.Context, session Session, documentID string) (RoomView, error) {
	if _, err := s.documentAccess(ctx, session, documentID); err != nil {
		return RoomView{}, err
	}
	adapter, _ := s.rooms.Mount(documentID, session.Claims)

	if s.cfg.RoomReadyWait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, s.cfg.RoomReadyWait)
		defer cancel()
		_ = adapter.Wait(waitCtx)
	}
	return RoomView{
		Provider:     room.NewProviderConfig(documentID, s.cfg.RoomThrottle),
		State:        adapter.State().String(),
		RosterStatus: rosterStatus(adapter),
	}, nil
}

func rosterStatus(adapter *room.Adapter) string {
	if adapter.State() != room.StateReady {
		return "loading"
	}
	switch adapter.Outcome() {
	case directory.OutcomeDirectoryFailed:
		return "failed"
	case directory.OutcomeNoOrganization:
		return "no_organization"
	default:
		return "ok"
	}
}

func (s *Service) UnmountRoom(session Session, documentID string) bool {
	return s.rooms.Unmount(documentID, session.UserID)
}

func (s *Service) mountedRoom(session Session, documentID string) (*room.Adapter, error) {
	adapter, ok := s.rooms.Get(documentID, session.Claims)
	if !ok {
		return nil, errRoomNotMounted(documentID)
	}
	return adapter, nil
}

func (s *Service) ResolveUsers(session Session, documentID string, userIDs []string) ([]room.UserInfo, error) {
	adapter, err := s.mountedRoom(session, documentID)
	if err != nil {
		return nil, err
	}
	return adapter.ResolveUsersByID(userIDs), nil
}

func (s *Service) MentionSuggestions(session Session, documentID, text string) ([]string, error) {
	adapter, err := s.mountedRoom(session, documentID)
	if err != nil {
		return nil, err
	}
	return adapter.ResolveMentionSuggestions(text), nil
}

func (s *Service) RoomsInfo(session Session, documentID string) ([]room.RoomInfo, error) {
	adapter, err := s.mountedRoom(session, documentID)
	if err != nil {
		return nil, err
	}
	return adapter.ResolveRoomsInfo(), nil
}

// AuthorizeRoom issues a collaboration-provider token for the document room.
// Owners always get full access; organization members get access by role.
func (s *Service) AuthorizeRoom(ctx context.Context, session Session, roomID string) (string, error) {
	if s.cfg.LiveblocksSecret == "" {
		return "", errRoomAuthUnavailable()
	}
	doc, err := s.documentAccess(ctx, session, roomID)
	if err != nil {
		return "", err
	}
	role := session.Role
	if doc.OwnerID == session.UserID {
		role = rbac.RoleAdmin
	}

	name := directory.DisplayName(
		firstClaim(session.Claims, "name", "full_name", "fullName"),
		firstClaim(session.Claims, "email", "primary_email"),
	)
	now := s.now()
	return auth.IssueRoomToken([]byte(s.cfg.LiveblocksSecret), auth.RoomClaims{
		UserID: session.UserID,
		UserInfo: auth.RoomUserInfo{
			Name:   name,
			Avatar: firstClaim(session.Claims, "image_url", "picture", "avatar"),
			Color:  NameColor(name),
		},
		Perms: map[string][]string{roomID: rbac.RoomPermissions(role)},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        util.NewID("rt"),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: auth.ExpiresIn(now, s.cfg.RoomTokenTTL),
		},
	})
}

// documentAccess loads the document and checks the caller owns it or
// belongs to its organization.
func (s *Service) documentAccess(ctx context.Context, session Session, documentID string) (store.Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return store.Document{}, errValidation("room is required")
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Document{}, errDocumentNotFound(documentID)
		}
		return store.Document{}, fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc.OwnerID == session.UserID {
		return doc, nil
	}
	if doc.OrganizationID != "" && doc.OrganizationID == session.OrganizationID {
		return doc, nil
	}
	s.logger.Warn("room access denied", "document_id", documentID, "user_id", session.UserID)
	return store.Document{}, errForbidden()
}

// NameColor derives a stable presence color from a display name.
func NameColor(name string) string {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return fmt.Sprintf("hsl(%d, 80%%, 60%%)", sum%360)
}

func firstClaim(claims auth.Claims, keys ...string) string {
	for _, key := range keys {
		if value := claims.String(key); value != "" {
			return value
		}
	}
	return ""
}
