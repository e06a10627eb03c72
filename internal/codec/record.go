package codec

import (
	"math"

	"github.com/pingcap/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// RecordVersion is the first byte of every stored value. Bumping it lets a
// future table version tell old layouts apart.
const RecordVersion byte = 1

// RecordWriter builds a stored value: the version byte followed by protobuf
// wire-format fields. Callers must write fields in ascending field-number
// order so that equal values always produce equal bytes.
type RecordWriter struct {
	buf []byte
}

func NewRecordWriter() *RecordWriter {
	return &RecordWriter{buf: []byte{RecordVersion}}
}

func (w *RecordWriter) PutString(num protowire.Number, v string) {
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendString(w.buf, v)
}

func (w *RecordWriter) PutUint64(num protowire.Number, v uint64) {
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, v)
}

func (w *RecordWriter) PutInt64(num protowire.Number, v int64) {
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(v))
}

func (w *RecordWriter) PutFloat64(num protowire.Number, v float64) {
	w.buf = protowire.AppendTag(w.buf, num, protowire.Fixed64Type)
	w.buf = protowire.AppendFixed64(w.buf, math.Float64bits(v))
}

func (w *RecordWriter) Bytes() []byte {
	return w.buf
}

// RecordReader walks the fields of a value produced by RecordWriter.
//
//	r, err := codec.NewRecordReader(data)
//	for r.Next() {
//	    switch r.Field() {
//	    case 1:
//	        u.Username, err = r.StringValue()
//	    }
//	}
//	err = r.Err()
//
// Unknown field numbers are skipped by the caller simply not asking for them.
type RecordReader struct {
	buf []byte
	num protowire.Number
	typ protowire.Type
	val []byte
	err error
}

func NewRecordReader(data []byte) (*RecordReader, error) {
	if len(data) == 0 {
		return nil, errors.New("empty record")
	}
	if data[0] != RecordVersion {
		return nil, errors.Errorf("unsupported record version %d", data[0])
	}
	return &RecordReader{buf: data[1:]}, nil
}

// Next advances to the next field. It returns false at the end of the record
// or on a structural error, which Err then reports.
func (r *RecordReader) Next() bool {
	if r.err != nil || len(r.buf) == 0 {
		return false
	}

	num, typ, n := protowire.ConsumeTag(r.buf)
	if n < 0 {
		r.err = errors.Annotate(protowire.ParseError(n), "field tag")
		return false
	}
	r.buf = r.buf[n:]

	m := protowire.ConsumeFieldValue(num, typ, r.buf)
	if m < 0 {
		r.err = errors.Annotatef(protowire.ParseError(m), "field %d", num)
		return false
	}

	r.num, r.typ, r.val = num, typ, r.buf[:m]
	r.buf = r.buf[m:]
	return true
}

func (r *RecordReader) Field() protowire.Number {
	return r.num
}

func (r *RecordReader) Err() error {
	return r.err
}

func (r *RecordReader) expect(typ protowire.Type) error {
	if r.typ != typ {
		return errors.Errorf("field %d: wire type %d, want %d", r.num, r.typ, typ)
	}
	return nil
}

func (r *RecordReader) StringValue() (string, error) {
	if err := r.expect(protowire.BytesType); err != nil {
		return "", err
	}
	v, n := protowire.ConsumeBytes(r.val)
	if n < 0 {
		return "", errors.Annotatef(protowire.ParseError(n), "field %d", r.num)
	}
	return string(v), nil
}

func (r *RecordReader) Uint64() (uint64, error) {
	if err := r.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(r.val)
	if n < 0 {
		return 0, errors.Annotatef(protowire.ParseError(n), "field %d", r.num)
	}
	return v, nil
}

func (r *RecordReader) Int64() (int64, error) {
	v, err := r.Uint64()
	if err != nil {
		return 0, err
	}
	return protowire.DecodeZigZag(v), nil
}

func (r *RecordReader) Float64() (float64, error) {
	if err := r.expect(protowire.Fixed64Type); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed64(r.val)
	if n < 0 {
		return 0, errors.Annotatef(protowire.ParseError(n), "field %d", r.num)
	}
	return math.Float64frombits(v), nil
}
