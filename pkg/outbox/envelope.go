package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const envelopeVersion = 1

type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
}

// PayloadEnvelope is the body of an outbox row and, unchanged, of the
// published message. EventID is the deduplication key for consumers.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    uuid.UUID       `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

var (
	errNoEventID = errors.New("envelope has no event id")
	errNoData    = errors.New("envelope has no data")
)

// Validate rejects envelopes no consumer could process or deduplicate.
func (e PayloadEnvelope) Validate() error {
	if e.Version != envelopeVersion {
		return fmt.Errorf("unsupported envelope version %d", e.Version)
	}
	if e.EventID == uuid.Nil {
		return errNoEventID
	}
	if data := bytes.TrimSpace(e.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errNoData
	}
	return nil
}
