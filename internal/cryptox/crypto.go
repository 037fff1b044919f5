// Package cryptox holds the credential primitives of the server: argon2id
// password hashing in the PHC string format and sha256 fingerprints of
// bearer tokens used as revocation keys.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters. Changing them does not invalidate stored hashes because
// every encoded hash carries its own parameters.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// ErrMalformedHash is returned when a stored hash cannot be decoded.
var ErrMalformedHash = errors.New("malformed password hash")

var b64 = base64.RawStdEncoding

// HashPassword derives an argon2id key from password with a fresh random salt
// and returns it encoded as
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
func HashPassword(password []byte) (string, error) {
	salt := common.GenerateRandByteArray(argonSaltLen)
	key := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	defer common.WipeByteArray(key)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

type params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decodeHash(encoded string) (*params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, ErrMalformedHash
	}

	p := &params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, ErrMalformedHash
	}
	// argon2.IDKey panics on zero rounds or threads.
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return nil, ErrMalformedHash
	}

	var err error
	if p.salt, err = b64.DecodeString(parts[4]); err != nil {
		return nil, ErrMalformedHash
	}
	if p.key, err = b64.DecodeString(parts[5]); err != nil || len(p.key) == 0 {
		return nil, ErrMalformedHash
	}
	return p, nil
}

// VerifyPassword reports whether password matches the encoded hash. The
// comparison is constant time.
func VerifyPassword(password []byte, encoded string) (bool, error) {
	p, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey(password, p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	defer common.WipeByteArray(candidate)

	return subtle.ConstantTimeCompare(p.key, candidate) == 1, nil
}

// dummyHash is verified against when the principal does not exist, so a
// login for an unknown email costs the same as a wrong password.
var dummyHash, _ = HashPassword([]byte("volunteerhub-dummy-password"))

// BurnVerify runs a full verification against a throwaway hash and discards
// the result.
func BurnVerify(password []byte) {
	_, _ = VerifyPassword(password, dummyHash)
}

// HashToken returns the hex sha256 fingerprint of a bearer token. Revocation
// stores key on the fingerprint and never see the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
