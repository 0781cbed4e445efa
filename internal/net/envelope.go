package net

import "encoding/json"

// Envelope is the wire message shape for every client/server exchange:
// {op, payload, nonce?}. Messages are JSON on a text channel.
type Envelope struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Nonce   string          `json:"nonce,omitempty"`
}

// DecodePayload unmarshals the envelope's payload into v. Used by handlers
// that expect a specific payload shape for their op.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// NewEnvelope marshals payload into an Envelope ready to send.
func NewEnvelope(op string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Op: op, Payload: raw}, nil
}
