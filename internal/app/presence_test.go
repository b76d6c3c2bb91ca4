package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aurora-ops/realtime/internal/core/mocks"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestPresence_OnlineOncePerOrganization(t *testing.T) {
	p := NewPresence(fixedClock())
	id := domain.Identity{UserID: "u1", OrganizationID: "o1"}

	ev, ok := p.Connected(id)
	require.True(t, ok)
	assert.Equal(t, domain.PresenceOnline, ev.Status)
	assert.Equal(t, domain.UserID("u1"), ev.UserID)

	_, ok = p.Connected(id)
	assert.False(t, ok, "second tab must not re-announce")

	_, ok = p.Connected(domain.Identity{UserID: "u1", OrganizationID: "o2"})
	assert.True(t, ok, "first connection in another organization is announced there")

	assert.Equal(t, []domain.UserID{"u1"}, p.Online("o1"))
	assert.Empty(t, p.Online("o3"))
}

func TestPresence_OfflineOnce(t *testing.T) {
	p := NewPresence(fixedClock())
	p.Connected(domain.Identity{UserID: "u1", OrganizationID: "o1"})
	p.Connected(domain.Identity{UserID: "u1", OrganizationID: "o2"})

	ev, orgs := p.Disconnected("u1")
	assert.Equal(t, domain.PresenceOffline, ev.Status)
	assert.Equal(t, []domain.OrganizationID{"o1", "o2"}, orgs)

	_, orgs = p.Disconnected("u1")
	assert.Empty(t, orgs)
	assert.Empty(t, p.Online("o1"))
}

func TestAuthenticator(t *testing.T) {
	principal := domain.Principal{UserID: "u1", Email: "u1@example.com"}
	active := domain.Membership{UserID: "u1", OrganizationID: "o1", Role: domain.RoleAdmin, Status: domain.MembershipActive}

	tests := []struct {
		name    string
		hs      domain.Handshake
		setup   func(v *mocks.MockVerifier, m *mocks.MockMembershipLookup)
		want    domain.Identity
		wantErr error
	}{
		{
			name: "valid credential and membership",
			hs:   domain.Handshake{Credential: "tok", OrganizationID: "o1"},
			setup: func(v *mocks.MockVerifier, m *mocks.MockMembershipLookup) {
				v.EXPECT().Verify(gomock.Any(), "tok").Return(principal, nil)
				m.EXPECT().FindActiveMembership(gomock.Any(), domain.UserID("u1"), domain.OrganizationID("o1")).Return(active, nil)
			},
			want: domain.Identity{UserID: "u1", OrganizationID: "o1", Email: "u1@example.com", Role: domain.RoleAdmin},
		},
		{
			name: "primary membership when organization omitted",
			hs:   domain.Handshake{Credential: "tok"},
			setup: func(v *mocks.MockVerifier, m *mocks.MockMembershipLookup) {
				v.EXPECT().Verify(gomock.Any(), "tok").Return(principal, nil)
				m.EXPECT().FindActiveMembership(gomock.Any(), domain.UserID("u1"), domain.OrganizationID("")).Return(active, nil)
			},
			want: domain.Identity{UserID: "u1", OrganizationID: "o1", Email: "u1@example.com", Role: domain.RoleAdmin},
		},
		{
			name:    "missing credential never reaches the verifier",
			hs:      domain.Handshake{OrganizationID: "o1"},
			setup:   func(v *mocks.MockVerifier, m *mocks.MockMembershipLookup) {},
			wantErr: domain.ErrAuthentication,
		},
		{
			name: "invalid credential",
			hs:   domain.Handshake{Credential: "bad", OrganizationID: "o1"},
			setup: func(v *mocks.MockVerifier, m *mocks.MockMembershipLookup) {
				v.EXPECT().Verify(gomock.Any(), "bad").Return(domain.Principal{}, errors.New("signature is invalid"))
			},
			wantErr: domain.ErrAuthentication,
		},
		{
			name: "no membership in claimed organization",
			hs:   domain.Handshake{Credential: "tok", OrganizationID: "o2"},
			setup: func(v *mocks.MockVerifier, m *mocks.MockMembershipLookup) {
				v.EXPECT().Verify(gomock.Any(), "tok").Return(principal, nil)
				m.EXPECT().FindActiveMembership(gomock.Any(), domain.UserID("u1"), domain.OrganizationID("o2")).Return(domain.Membership{}, domain.ErrAuthorization)
			},
			wantErr: domain.ErrAuthorization,
		},
		{
			name: "suspended membership",
			hs:   domain.Handshake{Credential: "tok", OrganizationID: "o1"},
			setup: func(v *mocks.MockVerifier, m *mocks.MockMembershipLookup) {
				v.EXPECT().Verify(gomock.Any(), "tok").Return(principal, nil)
				suspended := active
				suspended.Status = "suspended"
				m.EXPECT().FindActiveMembership(gomock.Any(), domain.UserID("u1"), domain.OrganizationID("o1")).Return(suspended, nil)
			},
			wantErr: domain.ErrAuthorization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			v := mocks.NewMockVerifier(ctrl)
			m := mocks.NewMockMembershipLookup(ctrl)
			tt.setup(v, m)

			a := &Authenticator{Verifier: v, Memberships: m, Timeout: time.Second}
			got, err := a.Authenticate(context.Background(), tt.hs)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
