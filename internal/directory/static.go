package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// StaticDirectory serves organization members from a JSON fixture for local
// development:
//
//	{"organizations": {"org_1": [{"id": "user_1", "fullName": "Dana", ...}]}}
type StaticDirectory struct {
	members map[string][]Member
}

type fixtureMember struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	PrimaryEmail string `json:"primaryEmail"`
	ImageURL     string `json:"imageUrl"`
}

func NewStaticDirectory(data []byte) (*StaticDirectory, error) {
	var parsed struct {
		Organizations map[string][]fixtureMember `json:"organizations"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("directory: parse fixture: %w", err)
	}

	members := make(map[string][]Member, len(parsed.Organizations))
	for orgID, list := range parsed.Organizations {
		for _, m := range list {
			if m.ID == "" {
				return nil, errors.New("directory: fixture contains member without id")
			}
			members[orgID] = append(members[orgID], Member(m))
		}
	}
	return &StaticDirectory{members: members}, nil
}

// ListOrganizationMembers returns a copy of the fixture members; unknown
// organizations have no members.
func (d *StaticDirectory) ListOrganizationMembers(_ context.Context, organizationID string) ([]Member, error) {
	list := d.members[organizationID]
	out := make([]Member, len(list))
	copy(out, list)
	return out, nil
}
