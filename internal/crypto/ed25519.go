package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	ErrInvalidIdentityKey = errors.New("invalid Ed25519 identity key")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSignatureExpired   = errors.New("signature timestamp expired")
	ErrInvalidNonce       = errors.New("invalid or reused nonce")
)

// ParseIdentityKey checks that an identity is a base64-encoded Ed25519 public
// key and returns it. Identities double as wallet public keys when signed
// registration is enabled.
func ParseIdentityKey(identityB64 string) (ed25519.PublicKey, error) {
	decoded, err := base64.StdEncoding.DecodeString(identityB64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 encoding", ErrInvalidIdentityKey)
	}

	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidIdentityKey, ed25519.PublicKeySize, len(decoded))
	}

	return ed25519.PublicKey(decoded), nil
}

// VerifySignature verifies a signed message.
func VerifySignature(pubkey ed25519.PublicKey, signedData []byte, signatureB64 string) error {
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 encoding", ErrInvalidSignature)
	}

	if !ed25519.Verify(pubkey, signedData, signature) {
		return ErrInvalidSignature
	}

	return nil
}

// RegisterPayload creates the canonical data signed during registration.
// Format: identity|nonce|timestamp
func RegisterPayload(identity, nonce string, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s|%s|%d", identity, nonce, timestamp))
}
