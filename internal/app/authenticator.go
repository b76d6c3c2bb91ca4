package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aurora-ops/realtime/internal/core"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

// Authenticator turns a handshake into an identity. The membership lookup
// always runs, even when the credential itself names an organization, so a
// revoked membership cannot keep room access.
type Authenticator struct {
	Verifier    core.Verifier
	Memberships core.MembershipLookup
	Timeout     time.Duration
}

func (a *Authenticator) Authenticate(ctx context.Context, hs domain.Handshake) (domain.Identity, error) {
	if hs.Credential == "" {
		return domain.Identity{}, fmt.Errorf("missing credential: %w", domain.ErrAuthentication)
	}
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	principal, err := a.Verifier.Verify(ctx, hs.Credential)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.auth").Msg("credential rejected")
		if errors.Is(err, domain.ErrAuthentication) {
			return domain.Identity{}, err
		}
		return domain.Identity{}, fmt.Errorf("verify credential: %w", errors.Join(domain.ErrAuthentication, err))
	}

	m, err := a.Memberships.FindActiveMembership(ctx, principal.UserID, hs.OrganizationID)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.auth").Str("user", string(principal.UserID)).Str("org", string(hs.OrganizationID)).Msg("membership rejected")
		if errors.Is(err, domain.ErrAuthorization) || errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, fmt.Errorf("user %s in org %q: %w", principal.UserID, hs.OrganizationID, domain.ErrAuthorization)
		}
		return domain.Identity{}, fmt.Errorf("membership lookup: %w", err)
	}
	if m.Status != "" && m.Status != domain.MembershipActive {
		return domain.Identity{}, fmt.Errorf("membership %s: %w", m.Status, domain.ErrAuthorization)
	}
	if hs.OrganizationID != "" && m.OrganizationID != hs.OrganizationID {
		return domain.Identity{}, fmt.Errorf("membership org mismatch: %w", domain.ErrAuthorization)
	}

	return domain.Identity{
		UserID:         principal.UserID,
		OrganizationID: m.OrganizationID,
		Email:          principal.Email,
		Role:           m.Role,
	}, nil
}
