package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAudience = "https://account.apple.com/auth/oauth2/v2/token"

// writeKey generates a key on curve and writes it as PKCS#8 PEM.
func writeKey(t *testing.T, curve elliptic.Curve) (string, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))

	return path, key
}

func parseAssertion(t *testing.T, assertion string, key *ecdsa.PrivateKey) (*jwt.Token, jwt.MapClaims) {
	t.Helper()

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(assertion, claims, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}), jwt.WithAudience(testAudience))
	require.NoError(t, err)

	return token, claims
}

func TestSigner_Sign(t *testing.T) {
	path, key := writeKey(t, elliptic.P256())
	signer := NewSigner("key-1", "SCHOOLAPI.client", path, testAudience)

	now := time.Now().Truncate(time.Second)
	assertion, err := signer.Sign(now)
	require.NoError(t, err)

	token, claims := parseAssertion(t, assertion, key)
	assert.Equal(t, "ES256", token.Header["alg"])
	assert.Equal(t, "key-1", token.Header["kid"])
	assert.Equal(t, "SCHOOLAPI.client", claims["sub"])
	assert.Equal(t, "SCHOOLAPI.client", claims["iss"])
	assert.Equal(t, testAudience, claims["aud"])
	assert.Equal(t, float64(now.Add(-60*time.Second).Unix()), claims["iat"])
	assert.Equal(t, float64(now.Add(180*24*time.Hour).Unix()), claims["exp"])
	assert.NotEmpty(t, claims["jti"])
}

func TestSigner_FreshNoncePerCall(t *testing.T) {
	path, key := writeKey(t, elliptic.P256())
	signer := NewSigner("key-1", "client", path, testAudience)

	first, err := signer.Sign(time.Now())
	require.NoError(t, err)
	second, err := signer.Sign(time.Now())
	require.NoError(t, err)

	_, c1 := parseAssertion(t, first, key)
	_, c2 := parseAssertion(t, second, key)
	assert.NotEqual(t, c1["jti"], c2["jti"])
}

func TestSigner_KeyErrorsAreNotWrapped(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		signer := NewSigner("k", "c", filepath.Join(t.TempDir(), "missing.pem"), testAudience)
		_, err := signer.Sign(time.Now())

		var pathErr *fs.PathError
		assert.True(t, errors.As(err, &pathErr))

		var authErr *AuthenticationError
		assert.False(t, errors.As(err, &authErr))
	})

	t.Run("not a key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0o600))

		signer := NewSigner("k", "c", path, testAudience)
		_, err := signer.Sign(time.Now())
		assert.ErrorIs(t, err, jwt.ErrKeyMustBePEMEncoded)
	})

	t.Run("wrong curve", func(t *testing.T) {
		path, _ := writeKey(t, elliptic.P384())
		signer := NewSigner("k", "c", path, testAudience)
		_, err := signer.Sign(time.Now())
		assert.Error(t, err)
	})
}

func TestAuthenticator_Authenticate(t *testing.T) {
	path, key := writeKey(t, elliptic.P256())

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "SCHOOLAPI.client", r.PostForm.Get("client_id"))
		assert.Equal(t, "school.api", r.PostForm.Get("scope"))
		assert.Equal(t, "urn:ietf:params:oauth:client-assertion-type:jwt-bearer", r.PostForm.Get("client_assertion_type"))
		parseAssertion(t, r.PostForm.Get("client_assertion"), key)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600,"scope":"school.api"}`))
	}))
	defer server.Close()

	signer := NewSigner("key-1", "SCHOOLAPI.client", path, testAudience)
	a := NewAuthenticator(signer, server.Client(), server.URL, "SCHOOLAPI.client", "school.api")

	assert.Equal(t, "", a.Token())
	require.NoError(t, a.Authenticate(context.Background()))
	assert.Equal(t, "tok-123", a.Token())

	// Already holding a token: no second exchange.
	require.NoError(t, a.EnsureAuthenticated(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Explicit re-authentication always exchanges.
	require.NoError(t, a.Authenticate(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAuthenticator_FailureCarriesBody(t *testing.T) {
	path, _ := writeKey(t, elliptic.P256())

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	a := NewAuthenticator(NewSigner("k", "c", path, testAudience), server.Client(), server.URL, "c", "school.api")

	err := a.EnsureAuthenticated(context.Background())
	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Contains(t, err.Error(), `{"error":"invalid_client"}`)
	assert.Equal(t, "", a.Token())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "authentication failures are not retried")
}

func TestAuthenticator_MissingTokenField(t *testing.T) {
	path, _ := writeKey(t, elliptic.P256())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer server.Close()

	a := NewAuthenticator(NewSigner("k", "c", path, testAudience), server.Client(), server.URL, "c", "school.api")

	var authErr *AuthenticationError
	assert.True(t, errors.As(a.Authenticate(context.Background()), &authErr))
	assert.Equal(t, "", a.Token())
}

func TestAuthenticator_KeyErrorSkipsNetwork(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	signer := NewSigner("k", "c", filepath.Join(t.TempDir(), "missing.pem"), testAudience)
	a := NewAuthenticator(signer, server.Client(), server.URL, "c", "school.api")

	err := a.Authenticate(context.Background())
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
