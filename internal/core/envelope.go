package core

import (
	"encoding/json"
	"fmt"

	"github.com/campushub/relay/internal/domain"
)

// SignalKind tags the negotiation role of an envelope. The payload itself
// is opaque to the server.
type SignalKind string

const (
	KindOffer       SignalKind = "offer"
	KindAnswer      SignalKind = "answer"
	KindViewerOffer SignalKind = "viewer-offer"
	KindHostAnswer  SignalKind = "host-answer"
)

func (k SignalKind) Valid() bool {
	switch k {
	case KindOffer, KindAnswer, KindViewerOffer, KindHostAnswer:
		return true
	}
	return false
}

// Envelope is a signal in flight. To wins over RoomID; an envelope with
// only RoomID is addressed to that room's broadcaster.
type Envelope struct {
	From       ConnID          `json:"from"`
	FromUserID domain.UserID   `json:"fromUserId"`
	UserName   string          `json:"userName"`
	To         ConnID          `json:"to,omitempty"`
	RoomID     domain.RoomID   `json:"roomId,omitempty"`
	Kind       SignalKind      `json:"type"`
	Signal     json.RawMessage `json:"signal"`
}

func (Envelope) EventType() string { return EventSignal }

// Validate checks the addressing fields only.
func (e Envelope) Validate() error {
	if e.To == "" && e.RoomID == "" {
		return fmt.Errorf("%w: signal without target", ErrBadPayload)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown signal type %q", ErrBadPayload, e.Kind)
	}
	if len(e.Signal) == 0 || string(e.Signal) == "null" {
		return fmt.Errorf("%w: empty signal", ErrBadPayload)
	}
	return nil
}
