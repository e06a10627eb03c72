package models

import (
	"strings"

	"github.com/dmitrijs2005/kosync/internal/codec"
	"github.com/pingcap/errors"
)

// ProgressKey identifies a Progress record. Keys order by Document first,
// then by User, both compared as raw bytes.
type ProgressKey struct {
	Document string
	User     string
}

func (k ProgressKey) Compare(other ProgressKey) int {
	if c := strings.Compare(k.Document, other.Document); c != 0 {
		return c
	}
	return strings.Compare(k.User, other.User)
}

// MarshalBinary concatenates the memcomparable encodings of Document and
// User, so the engine's byte order equals Compare.
func (k ProgressKey) MarshalBinary() ([]byte, error) {
	buf := codec.EncodeBytes([]byte(k.Document))
	return codec.AppendBytes(buf, []byte(k.User)), nil
}

func (k *ProgressKey) UnmarshalBinary(data []byte) error {
	rest, document, err := codec.DecodeBytes(data)
	if err != nil {
		return errors.Annotate(err, "document")
	}
	rest, user, err := codec.DecodeBytes(rest)
	if err != nil {
		return errors.Annotate(err, "user")
	}
	if len(rest) != 0 {
		return errors.Errorf("%d trailing bytes after progress key", len(rest))
	}

	k.Document = string(document)
	k.User = string(user)
	return nil
}

// DocumentPrefix is the encoded prefix shared by every key of document.
func DocumentPrefix(document string) []byte {
	return codec.EncodeBytes([]byte(document))
}
