package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for new hashes. Existing hashes carry their own
// parameters and keep verifying if these change.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	// ErrPasswordMismatch is returned by VerifyPassword when the hash is well
	// formed but does not match.
	ErrPasswordMismatch = errors.New("cryptox: password does not match")

	// ErrInvalidHash is returned for anything that is not an argon2id PHC
	// string this package can read.
	ErrInvalidHash = errors.New("cryptox: invalid password hash")
)

// HashPassword returns a PHC-format argon2id hash of password with a random
// salt. Hashing the same password twice gives two different strings.
func HashPassword(password string) (string, error) {
	p, err := getPepper()
	if err != nil {
		return "", err
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password+p), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks password against a hash made by HashPassword.
func VerifyPassword(password, encodedHash string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", salt, hash]
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[2])
	}

	var (
		mem, iters uint32
		par        uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}
	if mem == 0 || iters == 0 || par == 0 {
		return fmt.Errorf("%w: zero parameter", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: digest", ErrInvalidHash)
	}

	p, err := getPepper()
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(password+p),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - decoded digest length is small
	)
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// CheckPassword is VerifyPassword reduced to a yes or no.
func CheckPassword(password, encodedHash string) bool {
	return VerifyPassword(password, encodedHash) == nil
}
