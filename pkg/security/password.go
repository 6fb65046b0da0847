package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/carrental-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash signals a stored password hash that is not argon2id v19.
var ErrInvalidHash = errors.New("invalid argon2id hash")

const (
	hashPrefix   = "$argon2id$"
	argonVersion = argon2.Version
)

// ArgonParams are encoded into every stored hash; verification reads them back from
// the hash, not from config.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// ParamsFromConfig clamps the RENTAL_ARGON_* settings to sane bounds.
func ParamsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      bounded(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        bounded(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     bounded(cfg.ArgonSaltLen, 8, 64),
		KeyLen:      bounded(cfg.ArgonKeyLen, 16, 64),
	}
}

// HashPassword returns the encoded argon2id hash stored in users.password_hash.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if len([]rune(password)) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	params := ParamsFromConfig(cfg)
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Parallelism, params.KeyLen)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		hashPrefix, argonVersion,
		params.Memory, params.Time, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the stored hash. Over-long input is
// rejected before any key derivation runs.
func VerifyPassword(password, encoded string) (bool, error) {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	if len([]rune(password)) > MaxPasswordLength {
		return false, nil
	}
	computed := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Parallelism, params.KeyLen)
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

// decodeHash parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func decodeHash(encoded string) (ArgonParams, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(encoded, hashPrefix)
	if !ok {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}
	parts := strings.Split(rest, "$")
	if len(parts) != 4 {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[0], "v=%d", &version); err != nil || version != argonVersion {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}

	var params ArgonParams
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Parallelism); err != nil {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}
	if params.Memory == 0 || params.Time == 0 || params.Parallelism == 0 {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}
	params.SaltLen = uint32(len(salt))
	params.KeyLen = uint32(len(key))
	return params, salt, key, nil
}

func bounded(value, min, max int) uint32 {
	switch {
	case value < min:
		return uint32(min)
	case value > max:
		return uint32(max)
	}
	return uint32(value)
}
