package shaper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotObject is returned by Decode for valid JSON that is not an object.
	ErrNotObject = errors.New("payload must be a JSON object")
	// ErrTrailingData is returned by Decode when anything follows the object.
	ErrTrailingData = errors.New("payload must contain a single JSON object")
	// ErrMalformed wraps JSON syntax errors returned by Decode.
	ErrMalformed = errors.New("malformed JSON payload")
)

// Decode parses raw as a JSON object. Numbers are kept as json.Number.
// Blank input and a JSON null decode to an empty Event.
func Decode(raw []byte) (Event, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Event{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body Event
	if err := dec.Decode(&body); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotObject
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	if body == nil {
		body = Event{}
	}
	return body, nil
}
