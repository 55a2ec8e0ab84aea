package security

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSignJWT_Ed25519RawKey(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	creds := NewCredentials("organizations/o/apiKeys/k", base64.StdEncoding.EncodeToString(priv))
	now := time.Now()

	signed, err := creds.SignJWT("get", "api.coinbase.com", "/api/v3/brokerage/accounts", now)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{"EdDSA"}))
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	require.Equal(t, "organizations/o/apiKeys/k", claims["sub"])
	require.Equal(t, "cdp", claims["iss"])
	require.Equal(t, "GET api.coinbase.com/api/v3/brokerage/accounts", claims["uri"])
	require.EqualValues(t, now.Unix()+120, claims["exp"])

	require.Equal(t, "organizations/o/apiKeys/k", token.Header["kid"])
	require.Equal(t, claims["nonce"], token.Header["nonce"])
	require.Len(t, claims["nonce"], 32)
}

func TestSignJWT_Ed25519Seed(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	creds := NewCredentials("k", base64.StdEncoding.EncodeToString(priv.Seed()))
	signed, err := creds.SignJWT("POST", "api.coinbase.com", "/api/v3/brokerage/orders", time.Now())
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return priv.Public(), nil
	})
	require.NoError(t, err)
}

func TestSignJWT_ECPemWithEscapedNewlines(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)

	pemText := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	escaped := strings.ReplaceAll(pemText, "\n", `\n`)

	creds := NewCredentials("k", escaped)
	signed, err := creds.SignJWT("GET", "api.coinbase.com", "/api/v3/brokerage/best_bid_ask", time.Now())
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return &priv.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	require.NoError(t, err)
	require.True(t, token.Valid)
}

func TestCredentials_Errors(t *testing.T) {
	err := NewCredentials("", "secret").Validate()
	require.True(t, errors.Is(err, ErrMissingCredentials))

	err = NewCredentials("k", base64.StdEncoding.EncodeToString([]byte("short"))).Validate()
	require.ErrorContains(t, err, "unexpected key length")

	err = NewCredentials("k", "-----BEGIN NOTHING-----").Validate()
	require.Error(t, err)

	// parse failures are cached, not retried
	creds := NewCredentials("k", "%%%")
	first := creds.Validate()
	require.Error(t, first)
	require.Equal(t, first, creds.Validate())
}
