// internal/auth/operator.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash         = errors.New("the encoded hash is not in the correct format")
	ErrIncompatibleVersion = errors.New("incompatible version of argon2")
)

// params holds Argon2id hashing parameters.
type params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// Params is the default set used when hashing a new operator key.
var Params = &params{
	memory:      64 * 1024,
	iterations:  3,
	parallelism: uint8(max(1, runtime.NumCPU()/2)),
	saltLength:  16,
	keyLength:   32,
}

// HashOperatorKey encodes an Argon2id hash of key suitable for OPERATOR_KEY_HASH.
func HashOperatorKey(key string, p *params) (string, error) {
	salt := make([]byte, p.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(key), salt, p.iterations, p.memory, p.parallelism, p.keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.iterations, p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// OperatorKey verifies operator credentials against a stored Argon2id hash.
type OperatorKey struct {
	p    *params
	salt []byte
	hash []byte
}

// ParseOperatorKey decodes an encoded hash. An empty string yields a nil key, which
// rejects every credential.
func ParseOperatorKey(encoded string) (*OperatorKey, error) {
	if encoded == "" {
		return nil, nil
	}
	p, salt, hash, err := decodeHash(encoded)
	if err != nil {
		return nil, err
	}
	return &OperatorKey{p: p, salt: salt, hash: hash}, nil
}

// Enabled reports whether operator access is configured.
func (k *OperatorKey) Enabled() bool {
	return k != nil
}

// Verify compares a presented key in constant time.
func (k *OperatorKey) Verify(presented string) bool {
	if k == nil || presented == "" {
		return false
	}
	candidate := argon2.IDKey([]byte(presented), k.salt, k.p.iterations, k.p.memory, k.p.parallelism, k.p.keyLength)
	return subtle.ConstantTimeCompare(k.hash, candidate) == 1
}

func decodeHash(encodedHash string) (*params, []byte, []byte, error) {
	vals := strings.Split(encodedHash, "$")
	if len(vals) != 6 || vals[1] != "argon2id" {
		return nil, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(vals[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrIncompatibleVersion
	}

	p := &params{}
	if _, err := fmt.Sscanf(vals[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(vals[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	p.saltLength = uint32(len(salt))

	key, err := base64.RawStdEncoding.Strict().DecodeString(vals[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	p.keyLength = uint32(len(key))

	return p, salt, key, nil
}
