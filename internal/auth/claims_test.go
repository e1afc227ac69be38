package auth

import "testing"

func TestClaimsString(t *testing.T) {
	claims := Claims{
		"sub":    " user_1 ",
		"org_id": 42,
		"o":      map[string]any{"id": "org_1"},
		"flat":   "x",
	}
	cases := []struct {
		name string
		path []string
		want string
	}{
		{name: "trimmed", path: []string{"sub"}, want: "user_1"},
		{name: "nested", path: []string{"o", "id"}, want: "org_1"},
		{name: "non-string", path: []string{"org_id"}, want: ""},
		{name: "missing", path: []string{"orgId"}, want: ""},
		{name: "through scalar", path: []string{"flat", "id"}, want: ""},
		{name: "empty path", path: nil, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := claims.String(tc.path...); got != tc.want {
				t.Fatalf("String(%v) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}
