package core

import "github.com/aurora-ops/realtime/internal/domain"

// Frame is a raw encoded envelope.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnID
}

type RoomInfo struct {
	Key         domain.RoomKey `json:"room"`
	MemberCount int            `json:"member_count"`
}
