// Package protocol defines the server to client envelopes pushed over the
// deal notification websocket.
//
// Every frame is a JSON object with a "type" discriminator drawn from a
// closed set and a schema version "v". Clients must reject versions they do
// not know instead of guessing at the payload shape.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the envelope schema this package reads and writes.
const SchemaVersion = 1

type Type string

const (
	TypeConnected  Type = "connected"
	TypeDealUpdate Type = "deal-update"
)

func (t Type) Known() bool {
	switch t {
	case TypeConnected, TypeDealUpdate:
		return true
	}
	return false
}

var (
	ErrMalformedEnvelope  = errors.New("malformed envelope")
	ErrUnknownType        = errors.New("unknown envelope type")
	ErrUnsupportedVersion = errors.New("unsupported envelope version")
)

// Envelope is one wire message. ConnectionID is set only on connected
// envelopes and Deal only on deal-update envelopes.
type Envelope struct {
	Type         Type            `json:"type"`
	Version      int             `json:"v"`
	ID           string          `json:"id"`
	Time         time.Time       `json:"time"`
	ConnectionID string          `json:"connectionId,omitempty"`
	Deal         json.RawMessage `json:"deal,omitempty"`
}

// DealRef is the routing and recency part of a deal payload.
type DealRef struct {
	ID      int64 `json:"id"`
	Version int64 `json:"version"`
}

func newEnvelope(t Type) Envelope {
	return Envelope{
		Type:    t,
		Version: SchemaVersion,
		ID:      uuid.NewString(),
		Time:    time.Now().UTC(),
	}
}

// NewConnected acknowledges a freshly registered connection.
func NewConnected(connectionID string) Envelope {
	env := newEnvelope(TypeConnected)
	env.ConnectionID = connectionID
	return env
}

// NewDealUpdate wraps the full current state of a deal. The deal is
// serialized once and carried verbatim.
func NewDealUpdate(deal any) (Envelope, error) {
	raw, err := json.Marshal(deal)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal deal: %w", err)
	}
	env := newEnvelope(TypeDealUpdate)
	env.Deal = raw
	return env, nil
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses and validates a single frame.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Version != SchemaVersion {
		return Envelope{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if !env.Type.Known() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if env.Type == TypeDealUpdate && len(env.Deal) == 0 {
		return Envelope{}, fmt.Errorf("%w: deal-update without deal", ErrMalformedEnvelope)
	}
	return env, nil
}

// ParseDealRef extracts the id and version of a raw deal payload.
func ParseDealRef(raw json.RawMessage) (DealRef, error) {
	var ref DealRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return DealRef{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if ref.ID == 0 {
		return DealRef{}, fmt.Errorf("%w: deal without id", ErrMalformedEnvelope)
	}
	return ref, nil
}
