package conserver

import (
	"encoding/json"
	"strings"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Envelope binds a vCon id to the chain that should process it. On a queue an envelope is either the bare
// vCon id, in which case the chain is the one owning the queue, or the JSON encoding of the envelope.
type Envelope struct {
	VconID string `json:"vcon_id"`
	Chain  string `json:"chain,omitempty"`
}

// Encode returns the queue value for the envelope. Envelopes without a chain are encoded as the bare id.
func (e Envelope) Encode() (string, error) {
	if e.Chain == "" {
		return e.VconID, nil
	}

	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// ParseEnvelope decodes a queue value. defaultChain is used when the value does not name a chain.
func ParseEnvelope(value string, defaultChain string) (Envelope, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Envelope{}, errors.Wrap(ErrInvalidEnvelope, "empty value")
	}

	if !strings.HasPrefix(value, "{") {
		return Envelope{VconID: value, Chain: defaultChain}, nil
	}

	var e Envelope
	if err := json.Unmarshal([]byte(value), &e); err != nil {
		return Envelope{}, errors.Wrap(ErrInvalidEnvelope, err.Error(), j.MKV{"value": value})
	}

	if e.VconID == "" {
		return Envelope{}, errors.Wrap(ErrInvalidEnvelope, "missing vcon_id", j.MKV{"value": value})
	}

	if e.Chain == "" {
		e.Chain = defaultChain
	}

	return e, nil
}
