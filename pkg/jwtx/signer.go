package jwtx

// Signer is anything that can turn Claims into a signed compact JWT.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	Validate() error
}

// NewSignerHS256 creates an HMAC-SHA256 signer. The secret must be at least
// MinSecretLength bytes.
func NewSignerHS256(kid string, secret []byte) (Signer, error) {
	return newHS256Signer(kid, secret)
}
