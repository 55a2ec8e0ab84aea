package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwtIssuer = "cdp"
	jwtTTL    = 120 * time.Second
)

var ErrMissingCredentials = errors.New("api key and secret are required")

// Credentials holds one API key pair. The private key is parsed on first use
// and cached; a Credentials value is safe for concurrent use.
type Credentials struct {
	apiKey string
	secret string

	once   sync.Once
	key    crypto.Signer
	method jwt.SigningMethod
	err    error
}

func NewCredentials(apiKey, apiSecret string) *Credentials {
	return &Credentials{
		apiKey: strings.TrimSpace(apiKey),
		secret: strings.TrimSpace(apiSecret),
	}
}

func (c *Credentials) APIKey() string { return c.apiKey }

// Validate parses the key without signing anything.
func (c *Credentials) Validate() error {
	_, _, err := c.signer()
	return err
}

// SignJWT mints a short-lived bearer token bound to one request:
//
//	uri = "<METHOD> <host><path>"
//
// Ed25519 keys sign with EdDSA, EC keys with ES256.
func (c *Credentials) SignJWT(method, host, path string, now time.Time) (string, error) {
	key, signingMethod, err := c.signer()
	if err != nil {
		return "", err
	}

	nonce, err := randomNonce()
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"sub":   c.apiKey,
		"iss":   jwtIssuer,
		"nbf":   now.Unix(),
		"exp":   now.Add(jwtTTL).Unix(),
		"uri":   fmt.Sprintf("%s %s%s", strings.ToUpper(method), host, path),
		"nonce": nonce,
	}

	token := jwt.NewWithClaims(signingMethod, claims)
	token.Header["kid"] = c.apiKey
	token.Header["nonce"] = nonce

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func (c *Credentials) signer() (crypto.Signer, jwt.SigningMethod, error) {
	c.once.Do(func() {
		if c.apiKey == "" || c.secret == "" {
			c.err = ErrMissingCredentials
			return
		}
		c.key, c.method, c.err = parsePrivateKey(c.secret)
	})
	return c.key, c.method, c.err
}

// parsePrivateKey accepts a PEM block (EC or PKCS8, with literal "\n"
// escapes allowed) or raw base64 Ed25519 bytes (32 byte seed or 64 byte
// seed+public).
func parsePrivateKey(secret string) (crypto.Signer, jwt.SigningMethod, error) {
	if strings.HasPrefix(secret, "-----") {
		return parsePEM(strings.ReplaceAll(secret, `\n`, "\n"))
	}

	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, nil, fmt.Errorf("decode base64 secret: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize]), jwt.SigningMethodEdDSA, nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), jwt.SigningMethodEdDSA, nil
	default:
		return nil, nil, fmt.Errorf("unexpected key length: %d bytes, expected 32 or 64", len(raw))
	}
}

func parsePEM(secret string) (crypto.Signer, jwt.SigningMethod, error) {
	block, _ := pem.Decode([]byte(secret))
	if block == nil {
		return nil, nil, errors.New("invalid private key (no PEM block)")
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, nil, err
		}
		return k, jwt.SigningMethodES256, nil
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, nil, err
		}
		switch key := k.(type) {
		case ed25519.PrivateKey:
			return key, jwt.SigningMethodEdDSA, nil
		case *ecdsa.PrivateKey:
			return key, jwt.SigningMethodES256, nil
		default:
			return nil, nil, fmt.Errorf("unsupported private key type %T", k)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
