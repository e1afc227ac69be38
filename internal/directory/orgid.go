package directory

import "docroom/api/internal/auth"

// Extractor reads an organization id from session claims, returning "" when
// the claim shape it understands is absent.
type Extractor struct {
	Name    string
	Extract func(auth.Claims) string
}

// OrganizationExtractors lists the claim shapes the identity provider has
// used for the active organization, highest priority first.
var OrganizationExtractors = []Extractor{
	{Name: "o.id", Extract: func(c auth.Claims) string { return c.String("o", "id") }},
	{Name: "organization_id", Extract: func(c auth.Claims) string { return c.String("organization_id") }},
	{Name: "org_id", Extract: func(c auth.Claims) string { return c.String("org_id") }},
	{Name: "orgId", Extract: func(c auth.Claims) string { return c.String("orgId") }},
}

// OrganizationID returns the first non-empty organization id and the name
// of the claim shape it came from.
func OrganizationID(claims auth.Claims) (string, string) {
	for _, extractor := range OrganizationExtractors {
		if id := extractor.Extract(claims); id != "" {
			return id, extractor.Name
		}
	}
	return "", ""
}

// OrganizationRole returns the caller's role within the active organization.
func OrganizationRole(claims auth.Claims) string {
	return firstNonBlank(claims.String("o", "rol"), claims.String("org_role"), claims.String("orgRole"))
}
