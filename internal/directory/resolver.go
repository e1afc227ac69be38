package directory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"docroom/api/internal/auth"
	"docroom/api/internal/metrics"
)

// Outcome classifies a roster resolution.
type Outcome string

const (
	OutcomeFetched         Outcome = "fetched"
	OutcomeNoOrganization  Outcome = "no_organization"
	OutcomeDirectoryFailed Outcome = "directory_failed"
)

// Result is what ResolveOrganizationUsers produces. Users is never nil.
// Err carries the directory fault when Outcome is OutcomeDirectoryFailed.
type Result struct {
	OrganizationID string
	Users          []UserSummary
	Outcome        Outcome
	Err            error
}

// Failed reports whether the directory query itself failed.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeDirectoryFailed
}

type Resolver struct {
	directory MemberLister
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type ResolverOption func(*Resolver)

func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(directory MemberLister, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		directory: directory,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveOrganizationUsers returns the roster of the caller's organization.
// It never fails: a missing organization or a directory fault both yield an
// empty roster, distinguished by Outcome.
func (r *Resolver) ResolveOrganizationUsers(ctx context.Context, claims auth.Claims) Result {
	orgID, shape := OrganizationID(claims)
	if orgID == "" {
		r.logger.Warn("no organization in session claims, returning empty roster", "subject", claims.Subject())
		return r.finish(Result{Users: []UserSummary{}, Outcome: OutcomeNoOrganization})
	}
	r.logger.Debug("organization resolved", "organization_id", orgID, "claim", shape)

	started := time.Now()
	members, err := r.list(ctx, orgID)
	r.metrics.ObserveDirectoryFetch(time.Since(started))
	if err != nil {
		r.logger.Error("fetch organization members failed", "organization_id", orgID, "error", err)
		return r.finish(Result{OrganizationID: orgID, Users: []UserSummary{}, Outcome: OutcomeDirectoryFailed, Err: err})
	}

	users := Summarize(members)
	r.logger.Info("fetched organization members", "organization_id", orgID, "count", len(users))
	return r.finish(Result{OrganizationID: orgID, Users: users, Outcome: OutcomeFetched})
}

// list shields the caller from panics in directory implementations.
func (r *Resolver) list(ctx context.Context, orgID string) (members []Member, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("directory panicked: %v", recovered)
		}
	}()
	return r.directory.ListOrganizationMembers(ctx, orgID)
}

func (r *Resolver) finish(result Result) Result {
	r.metrics.RecordResolution(string(result.Outcome))
	return result
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
