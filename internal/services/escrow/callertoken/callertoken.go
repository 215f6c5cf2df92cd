// Package callertoken issues and verifies the signed tokens that carry a
// caller's wallet address to the escrow service.
//
// Tokens are EdDSA JWTs. The platform admin address is the issuer, the
// caller address is the subject and the audience is fixed.
package callertoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/commongood/internal/platform/errors"
	"github.com/louisbranch/commongood/internal/platform/id"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
)

const (
	// Audience is the aud claim every caller token must carry.
	Audience = "commongood-escrow"
	// DefaultTTL bounds token lifetime when the signer is given none.
	DefaultTTL = 15 * time.Minute
)

// Signer issues caller tokens on behalf of the platform admin.
type Signer struct {
	issuer account.Address
	key    ed25519.PrivateKey
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer for issuer. A non-positive ttl uses DefaultTTL.
func NewSigner(issuer account.Address, key ed25519.PrivateKey, ttl time.Duration) (*Signer, error) {
	if issuer.IsZero() {
		return nil, errors.New("token issuer is required")
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing key must be %d bytes", ed25519.PrivateKeySize)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{issuer: issuer, key: key, ttl: ttl, now: time.Now}, nil
}

// Sign issues a token naming caller as its subject.
func (s *Signer) Sign(caller string) (string, error) {
	if s == nil {
		return "", errors.New("token signer is not configured")
	}
	addr, err := account.Parse(caller)
	if err != nil {
		return "", err
	}
	if addr.IsZero() {
		return "", errors.New("caller address is required")
	}
	tokenID, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer.String(),
		Subject:   addr.String(),
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        tokenID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign caller token: %w", err)
	}
	return signed, nil
}

// Verifier checks caller tokens issued by the platform admin.
type Verifier struct {
	issuer account.Address
	key    ed25519.PublicKey
	now    func() time.Time
}

// NewVerifier creates a verifier accepting tokens from issuer signed by key.
func NewVerifier(issuer account.Address, key ed25519.PublicKey) (*Verifier, error) {
	if issuer.IsZero() {
		return nil, errors.New("token issuer is required")
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("verification key must be %d bytes", ed25519.PublicKeySize)
	}
	return &Verifier{issuer: issuer, key: key, now: time.Now}, nil
}

// Verify validates token and returns the caller it names.
func (v *Verifier) Verify(token string) (account.Address, error) {
	if v == nil {
		return account.Zero, errors.New("token verifier is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return account.Zero, apperrors.New(apperrors.CodeCallerTokenInvalid, "caller token is required")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(v.issuer.String()),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return account.Zero, mapJWTError(err)
	}
	caller, err := account.Parse(claims.Subject)
	if err != nil || caller.IsZero() {
		return account.Zero, apperrors.New(apperrors.CodeCallerTokenInvalid, "caller token subject is invalid")
	}
	return caller, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeCallerTokenExpired, "caller token is expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrEd25519Verification):
		return apperrors.Wrap(apperrors.CodeCallerTokenInvalid, "caller token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return apperrors.Wrap(apperrors.CodeCallerTokenInvalid, "caller token issuer mismatch", err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return apperrors.Wrap(apperrors.CodeCallerTokenInvalid, "caller token audience mismatch", err)
	default:
		return apperrors.Wrap(apperrors.CodeCallerTokenInvalid, "caller token is invalid", err)
	}
}

// ParsePublicKey decodes a base64 Ed25519 public key.
func ParsePublicKey(value string) (ed25519.PublicKey, error) {
	raw, err := decodeBase64(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// ParsePrivateKey decodes a base64 Ed25519 private key or its 32-byte seed.
func ParsePrivateKey(value string) (ed25519.PrivateKey, error) {
	raw, err := decodeBase64(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes", ed25519.PrivateKeySize, ed25519.SeedSize)
	}
}

// EncodeKey renders key the way ParsePublicKey and ParsePrivateKey read it.
func EncodeKey(key []byte) string {
	return base64.RawStdEncoding.EncodeToString(key)
}

// WriteKeyPair generates a key pair and writes shell exports for the escrow
// server and the seed command.
func WriteKeyPair(out io.Writer, reader io.Reader) error {
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}
	publicKey, privateKey, err := ed25519.GenerateKey(reader)
	if err != nil {
		return fmt.Errorf("generate caller key: %w", err)
	}
	if _, err := fmt.Fprintf(out, "export COMMONGOOD_SEED_CALLER_SIGNING_KEY=%s\n", EncodeKey(privateKey)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "export COMMONGOOD_ESCROW_CALLER_PUBLIC_KEY=%s\n", EncodeKey(publicKey)); err != nil {
		return err
	}
	return nil
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
