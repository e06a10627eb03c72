// Package codec adapts domain records to the byte keys and values stored in
// the embedded engine.
//
// Values are framed by RecordWriter/RecordReader. Keys that are composite use
// the memcomparable encoding from EncodeBytes so that the engine's raw byte
// order is the record's natural order. KeyCodec.Compare states that order in
// terms of decoded values; the two must always agree.
//
// Decoding is tolerant: an empty slice is the zero value (no record) and a
// slice that fails validation is logged and also treated as the zero value.
// DecodeStrict is available where the caller needs to see the failure.
package codec

import (
	"context"
	"encoding"
	"fmt"

	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/dmitrijs2005/kosync/internal/logging"
)

// Record is satisfied by *T when T has a canonical binary form.
type Record[T any] interface {
	*T
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// OrderedRecord is a Record whose values also have a natural order.
type OrderedRecord[T any] interface {
	Record[T]
	Compare(T) int
}

// Codec encodes and decodes values of T.
type Codec[T any, P Record[T]] struct {
	name   string
	logger logging.Logger
}

// New returns a Codec for T whose warnings are logged through logger.
func New[T any, P Record[T]](logger logging.Logger) *Codec[T, P] {
	var zero T
	name := fmt.Sprintf("%T", zero)
	return &Codec[T, P]{
		name:   name,
		logger: logger.With("module", "codec", "type", name),
	}
}

// Name returns the Go type name of T, used in logs and errors.
func (c *Codec[T, P]) Name() string {
	return c.name
}

// Encode returns the canonical bytes of v. Equal values give equal bytes.
func (c *Codec[T, P]) Encode(v T) ([]byte, error) {
	data, err := P(&v).MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.name, err)
	}
	return data, nil
}

// Decode returns the value stored in data. It never fails: empty input and
// corrupted input both yield the zero value, the latter with a warning.
func (c *Codec[T, P]) Decode(ctx context.Context, data []byte) T {
	v, err := c.DecodeStrict(data)
	if err != nil {
		c.logger.Warn(ctx, "stored record failed validation, using default value",
			"error", err, "size", len(data))
		var zero T
		return zero
	}
	return v
}

// DecodeStrict is Decode without the corruption fallback. Failures wrap
// common.ErrCorruptRecord.
func (c *Codec[T, P]) DecodeStrict(data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := P(&v).UnmarshalBinary(data); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %v", common.ErrCorruptRecord, c.name, err)
	}
	return v, nil
}

// KeyCodec is a Codec for table keys.
type KeyCodec[T any, P OrderedRecord[T]] struct {
	*Codec[T, P]
}

// NewKey returns a KeyCodec for T.
func NewKey[T any, P OrderedRecord[T]](logger logging.Logger) *KeyCodec[T, P] {
	return &KeyCodec[T, P]{Codec: New[T, P](logger)}
}

// Compare orders two encoded keys by their decoded values. For every key
// format in this repository bytes.Compare(a, b) has the same sign.
func (c *KeyCodec[T, P]) Compare(a, b []byte) int {
	ctx := context.Background()
	x := c.Decode(ctx, a)
	y := c.Decode(ctx, b)
	return P(&x).Compare(y)
}
