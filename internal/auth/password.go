package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params controls the cost factors for Argon2id password hashing.
// Argon2id hashes the full input, so unlike bcrypt there is no 72-byte
// truncation to defend against.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // kibibytes
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params returns the cost factors used for credential hashes.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    2,
		Memory:  64 * 1024, // 64 MiB
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// HashPassword derives an Argon2id digest in PHC string format:
// $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>
func HashPassword(password string) (string, error) {
	return HashPasswordWithParams(password, DefaultArgon2Params())
}

// HashPasswordWithParams hashes using explicit cost factors.
func HashPasswordWithParams(password string, params Argon2Params) (string, error) {
	if params.Time == 0 || params.Threads == 0 || params.KeyLen == 0 || params.SaltLen == 0 {
		return "", fmt.Errorf("argon2: invalid parameters %+v", params)
	}

	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory,
		params.Time,
		params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// VerifyPassword compares a plaintext candidate against an encoded digest.
// It returns false, never an error, for malformed digests; hashing work is
// performed before comparison and the comparison itself is constant-time.
func VerifyPassword(password, encoded string) bool {
	params, salt, key, err := decodeDigest(encoded)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1
}

func decodeDigest(encoded string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: malformed digest")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: unsupported version")
	}

	var params Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: malformed parameters")
	}
	if params.Time == 0 || params.Threads == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: invalid cost factors")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: malformed salt")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: malformed key")
	}

	return params, salt, key, nil
}
