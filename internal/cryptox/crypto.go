// Package cryptox implements salted argon2id password hashing.
//
// Hashes are stored as PHC strings so that each record carries its own
// algorithm, version, cost parameters and salt:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<key>
//
// Salt and key are standard base64 without padding.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kosync/internal/common"
	"golang.org/x/crypto/argon2"
)

const algorithm = "argon2id"

// Params are the argon2id cost parameters embedded in a hash.
type Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultParams are used for every new hash.
var DefaultParams = Params{
	Memory:  19 * 1024,
	Time:    2,
	Threads: 1,
	KeyLen:  32,
}

// MaxParams bounds the cost parameters accepted from a stored hash. A record
// above them is malformed; deriving with it could exhaust memory.
var MaxParams = Params{
	Memory:  16 * DefaultParams.Memory,
	Time:    16 * DefaultParams.Time,
	Threads: 16 * DefaultParams.Threads,
	KeyLen:  128,
}

const saltLen = 16

// generateSalt is swapped out in tests.
var generateSalt = func() []byte {
	return common.GenerateRandByteArray(saltLen)
}

var b64 = base64.RawStdEncoding

// HashPassword derives a key from plain with a fresh random salt and returns
// the PHC encoded record.
func HashPassword(plain string) (string, error) {
	salt := generateSalt()
	if len(salt) == 0 {
		return "", fmt.Errorf("%w: empty salt", common.ErrorInternal)
	}
	return encode(DefaultParams, salt, derive([]byte(plain), salt, DefaultParams)), nil
}

// VerifyPassword reports whether attempt matches encoded. The derived key is
// compared in constant time. A mismatch is (false, nil); an error wrapping
// common.ErrMalformedHash means encoded could not be parsed.
func VerifyPassword(encoded, attempt string) (bool, error) {
	p, salt, key, err := ParsePHC(encoded)
	if err != nil {
		return false, err
	}

	candidate := derive([]byte(attempt), salt, p)
	defer common.WipeByteArray(candidate)

	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

// ParsePHC splits an argon2id PHC string into its parameters, salt and key.
func ParsePHC(encoded string) (Params, []byte, []byte, error) {
	malformed := func(format string, args ...any) (Params, []byte, []byte, error) {
		return Params{}, nil, nil, fmt.Errorf("%w: %s", common.ErrMalformedHash, fmt.Sprintf(format, args...))
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return malformed("expected 5 sections, got %d", len(parts)-1)
	}
	if parts[1] != algorithm {
		return malformed("unsupported algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return malformed("version: %v", err)
	}
	if version != argon2.Version || parts[2] != fmt.Sprintf("v=%d", version) {
		return malformed("unsupported version %q", parts[2])
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return malformed("params: %v", err)
	}
	if parts[3] != fmt.Sprintf("m=%d,t=%d,p=%d", p.Memory, p.Time, p.Threads) {
		return malformed("params %q", parts[3])
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
		return malformed("zero cost parameter in %q", parts[3])
	}
	if p.Memory > MaxParams.Memory || p.Time > MaxParams.Time || p.Threads > MaxParams.Threads {
		return malformed("cost parameters %q above limit", parts[3])
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return malformed("salt: %v", err)
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return malformed("key: %v", err)
	}
	if len(salt) == 0 || len(key) == 0 {
		return malformed("empty salt or key")
	}
	if len(key) > int(MaxParams.KeyLen) {
		return malformed("key of %d bytes above limit", len(key))
	}
	p.KeyLen = uint32(len(key))

	return p, salt, key, nil
}

func derive(password, salt []byte, p Params) []byte {
	return argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

func encode(p Params, salt, key []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm, argon2.Version, p.Memory, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}
