// Package domain contains entity without logic, just meta-data
package domain

import "strings"

type (
	UserID         string
	OrganizationID string
	ConnID         string
)

// Principal is what a verified credential proves: who the caller is.
type Principal struct {
	UserID UserID `json:"userId"`
	Email  string `json:"email"`
}

// Identity is a principal bound to one organization membership.
type Identity struct {
	UserID         UserID         `json:"userId"`
	OrganizationID OrganizationID `json:"organizationId"`
	Email          string         `json:"email"`
	Role           Role           `json:"role"`
}

// ConnectionIdentity exists for exactly one live connection.
type ConnectionIdentity struct {
	Identity
	ConnID ConnID `json:"connectionId"`
}

// Handshake carries what a client presents when opening a connection.
type Handshake struct {
	Credential     string
	OrganizationID OrganizationID
}

// BearerToken strips an optional "Bearer " scheme prefix.
func BearerToken(header string) string {
	h := strings.TrimSpace(header)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}
