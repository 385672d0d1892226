package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted, matching the
// SHA-256 block output size.
const MinSecretLength = 32

// ErrWeakSecret is returned for secrets shorter than MinSecretLength.
var ErrWeakSecret = fmt.Errorf("jwtx: secret must be at least %d bytes", MinSecretLength)

// HS256Signer signs tokens with a shared secret.
type HS256Signer struct {
	kid    string
	secret []byte
}

func newHS256Signer(kid string, secret []byte) (*HS256Signer, error) {
	s := &HS256Signer{kid: kid, secret: append([]byte(nil), secret...)}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }
func (s *HS256Signer) KID() string { return s.kid }

// Sign returns the compact serialisation of claims.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.kid != "" {
		t.Header["kid"] = s.kid
	}
	return t.SignedString(s.secret)
}

func (s *HS256Signer) Validate() error {
	if len(s.secret) < MinSecretLength {
		return ErrWeakSecret
	}
	return nil
}

// HS256Verifier validates tokens signed by an HS256Signer with the same
// secret.
type HS256Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifierHS256 builds a verifier. Signatures are checked before any
// claim, and segments must be strict base64url so that no two distinct
// encodings of a signature are both accepted.
func NewVerifierHS256(secret []byte, opts VerifyOptions) (*HS256Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(opts.Leeway))
	}
	if opts.Now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(opts.Now))
	}

	return &HS256Verifier{
		secret: append([]byte(nil), secret...),
		parser: jwt.NewParser(parserOpts...),
	}, nil
}

// Verify parses tokenStr and returns its claims. Errors are one of the
// package sentinels so callers can tell expiry apart from tampering.
func (v *HS256Verifier) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	if !token.Valid {
		return nil, ErrInvalidClaim
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidClaim)
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		// Also covers an alg outside WithValidMethods.
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}
}
