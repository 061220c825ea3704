// Package ids defines the 128-bit opaque identifiers used for sessions and
// segments.
package ids

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SessionId uniquely identifies a recorded session. Never reused.
type SessionId uuid.UUID

// SegmentId uniquely identifies a single on-disk segment blob. Never reused.
type SegmentId uuid.UUID

// NewSessionId returns a new random SessionId.
func NewSessionId() SessionId {
	return SessionId(uuid.New())
}

// NewSegmentId returns a new random SegmentId.
func NewSegmentId() SegmentId {
	return SegmentId(uuid.New())
}

func (id SessionId) String() string { return uuid.UUID(id).String() }
func (id SegmentId) String() string { return uuid.UUID(id).String() }

// ParseSessionId parses the canonical lowercase-hex form.
func ParseSessionId(s string) (SessionId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionId{}, fmt.Errorf("parse session id %q: %w", s, err)
	}
	return SessionId(u), nil
}

// ParseSegmentId parses the canonical lowercase-hex form.
func ParseSegmentId(s string) (SegmentId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SegmentId{}, fmt.Errorf("parse segment id %q: %w", s, err)
	}
	return SegmentId(u), nil
}

func (id SessionId) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *SessionId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSessionId(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id SegmentId) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *SegmentId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSegmentId(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
