// Package directory resolves the caller's organization roster from an
// external identity directory.
package directory

import (
	"context"
	"errors"
)

// AnonymousName is used when a member has neither a full name nor a primary
// email address.
const AnonymousName = "Anonymous"

// Member is a directory record as returned by the identity provider.
type Member struct {
	ID           string
	FullName     string
	PrimaryEmail string
	ImageURL     string
}

// UserSummary is the normalized roster entry handed to collaboration rooms.
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// MemberLister lists every member of an organization.
type MemberLister interface {
	ListOrganizationMembers(ctx context.Context, organizationID string) ([]Member, error)
}

// ErrUnexpectedStatus wraps non-2xx responses from the directory.
var ErrUnexpectedStatus = errors.New("directory: unexpected status")

// DisplayName applies the name fallback chain: full name, then primary
// email, then AnonymousName.
func DisplayName(fullName, primaryEmail string) string {
	return firstNonBlank(fullName, primaryEmail, AnonymousName)
}

// Summarize normalizes directory members into a roster. Duplicate ids keep
// their first occurrence.
func Summarize(members []Member) []UserSummary {
	users := make([]UserSummary, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if member.ID == "" {
			continue
		}
		if _, ok := seen[member.ID]; ok {
			continue
		}
		seen[member.ID] = struct{}{}
		users = append(users, UserSummary{
			ID:     member.ID,
			Name:   DisplayName(member.FullName, member.PrimaryEmail),
			Avatar: member.ImageURL,
		})
	}
	return users
}
