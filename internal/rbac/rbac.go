// Package rbac maps identity-provider organization roles onto what a caller
// may do inside a collaboration room.
package rbac

import (
	"strings"

	"docroom/api/internal/auth"
)

type Role string
type Action string

const (
	RoleViewer    Role = "viewer"
	RoleCommenter Role = "commenter"
	RoleEditor    Role = "editor"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionComment Action = "comment"
	ActionWrite   Action = "write"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionComment || action == ActionWrite
	case RoleCommenter:
		return action == ActionRead || action == ActionComment
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// Normalize maps an organization role claim such as "org:admin" to a Role.
// An empty role means plain membership and maps to RoleEditor; anything
// unrecognized is read-only.
func Normalize(role string) Role {
	trimmed := strings.ToLower(strings.TrimSpace(role))
	trimmed = strings.TrimPrefix(trimmed, "org:")
	switch trimmed {
	case "", "member", "basic_member":
		return RoleEditor
	case "admin", "owner":
		return RoleAdmin
	case string(RoleEditor), string(RoleCommenter), string(RoleViewer):
		return Role(trimmed)
	default:
		return RoleViewer
	}
}

// RoomPermissions lists the room-token permissions granted to role.
func RoomPermissions(role Role) []string {
	switch {
	case Can(role, ActionWrite):
		return []string{auth.PermRoomWrite}
	case Can(role, ActionComment):
		return []string{auth.PermRoomRead, auth.PermRoomPresenceWrite, auth.PermCommentsWrite}
	case Can(role, ActionRead):
		return []string{auth.PermRoomRead, auth.PermRoomPresenceWrite}
	default:
		return []string{}
	}
}
