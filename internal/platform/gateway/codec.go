package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Record is the constraint for ledger-backed record kinds: a pointer to the
// record struct exposing its id and subject identifier.
type Record[T any] interface {
	*T
	RecordID() string
	SetRecordID(id string)
	RecordSubject() string
}

// Codec converts records to and from the JSON form stored on the ledger.
// Record structs declare every field without omitempty, so encoding is
// lossless and absent values stay explicit.
type Codec[T any, R Record[T]] struct{}

// Encode serializes a record.
func (Codec[T, R]) Encode(r R) ([]byte, error) {
	if (*T)(r) == nil {
		return nil, fmt.Errorf("%w: record is required", ErrInvalidInput)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

// Decode deserializes a single record. An empty or null payload is
// ErrNotFound; anything unparsable or missing id or subject is
// ErrMalformedRecord.
func (c Codec[T, R]) Decode(data []byte) (R, error) {
	if isAbsent(data) {
		return nil, ErrNotFound
	}
	r := R(new(T))
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := c.validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeMany deserializes a JSON array of records in ledger order.
func (c Codec[T, R]) DecodeMany(data []byte) ([]R, error) {
	if isAbsent(data) {
		return []R{}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return c.decodeElements(raw)
}

// DecodePage deserializes a paginated query envelope.
func (c Codec[T, R]) DecodePage(data []byte) (*Page[T, R], error) {
	if isAbsent(data) {
		return &Page[T, R]{Items: []R{}}, nil
	}
	var env struct {
		Records      []json.RawMessage `json:"records"`
		Bookmark     string            `json:"bookmark"`
		FetchedCount int               `json:"fetchedCount"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	items, err := c.decodeElements(env.Records)
	if err != nil {
		return nil, err
	}
	return &Page[T, R]{Items: items, Bookmark: env.Bookmark, FetchedCount: env.FetchedCount}, nil
}

func (c Codec[T, R]) decodeElements(raw []json.RawMessage) ([]R, error) {
	out := make([]R, 0, len(raw))
	for i, item := range raw {
		r, err := c.Decode(item)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: element %d is empty", ErrMalformedRecord, i)
		}
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (Codec[T, R]) validate(r R) error {
	if r.RecordID() == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	if r.RecordSubject() == "" {
		return fmt.Errorf("%w: missing subject identifier", ErrMalformedRecord)
	}
	return nil
}

func isAbsent(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
