package auth

import "strings"

// Claims is the opaque claim bag attached to a verified session. Only a
// handful of well-known keys are ever read from it.
type Claims map[string]any

// String returns the claim at the given key path when it holds a non-blank
// string. Intermediate path elements must be JSON objects.
func (c Claims) String(path ...string) string {
	if len(path) == 0 {
		return ""
	}
	var current any = map[string]any(c)
	for _, key := range path {
		object, ok := asObject(current)
		if !ok {
			return ""
		}
		current, ok = object[key]
		if !ok {
			return ""
		}
	}
	value, ok := current.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func (c Claims) Subject() string {
	return c.String("sub")
}

func asObject(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case Claims:
		return typed, true
	default:
		return nil, false
	}
}
