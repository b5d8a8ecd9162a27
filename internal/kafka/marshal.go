package kafka

import (
	"encoding/json"

	"github.com/pkg/errors"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func UnmarshalEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(b, &env)
	return env, errors.Wrap(err, "decode envelope")
}

// UnwrapPayload decodes the event specific payload.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, errors.Wrap(err, "decode payload")
	}
	return t, nil
}
