package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifierAcceptsHMACSessionToken(t *testing.T) {
	verifier := NewVerifier(WithHMACSecret("session-secret"))
	token := signHS256(t, "session-secret", jwt.MapClaims{
		"sub": "user_1",
		"o":   map[string]any{"id": "org_1", "rol": "admin"},
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := verifier.Claims(context.Background(), token)
	if err != nil {
		t.Fatalf("Claims() error = %v", err)
	}
	if claims.Subject() != "user_1" {
		t.Fatalf("Subject() = %q, want user_1", claims.Subject())
	}
	if got := claims.String("o", "id"); got != "org_1" {
		t.Fatalf(`String("o","id") = %q, want org_1`, got)
	}
}

func TestVerifierRejectsBadTokens(t *testing.T) {
	verifier := NewVerifier(WithHMACSecret("session-secret"), WithIssuer("https://clerk.example.dev"))
	cases := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrInvalidToken},
		{name: "garbage", token: "not-a-jwt", want: ErrInvalidToken},
		{
			name: "expired",
			token: signHS256(t, "session-secret", jwt.MapClaims{
				"sub": "user_1", "iss": "https://clerk.example.dev", "exp": time.Now().Add(-time.Minute).Unix(),
			}),
			want: ErrExpiredToken,
		},
		{
			name: "wrong secret",
			token: signHS256(t, "other", jwt.MapClaims{
				"sub": "user_1", "iss": "https://clerk.example.dev", "exp": time.Now().Add(time.Hour).Unix(),
			}),
			want: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: signHS256(t, "session-secret", jwt.MapClaims{
				"sub": "user_1", "iss": "https://evil.example.dev", "exp": time.Now().Add(time.Hour).Unix(),
			}),
			want: ErrInvalidToken,
		},
		{
			name: "missing subject",
			token: signHS256(t, "session-secret", jwt.MapClaims{
				"iss": "https://clerk.example.dev", "exp": time.Now().Add(time.Hour).Unix(),
			}),
			want: ErrInvalidToken,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := verifier.Claims(context.Background(), tc.token)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Claims() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestVerifierRejectsHMACWithoutSecret(t *testing.T) {
	verifier := NewVerifier()
	token := signHS256(t, "anything", jwt.MapClaims{"sub": "user_1", "exp": time.Now().Add(time.Hour).Unix()})
	if _, err := verifier.Claims(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Claims() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifierFetchesJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var fetches atomic.Int32
	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "ins_1",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	defer jwks.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":    "user_2",
		"org_id": "org_9",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "ins_1"
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	verifier := NewVerifier(WithJWKS(jwks.URL), WithHTTPClient(jwks.Client()))
	for i := 0; i < 2; i++ {
		claims, err := verifier.Claims(context.Background(), signed)
		if err != nil {
			t.Fatalf("Claims() error = %v", err)
		}
		if claims.String("org_id") != "org_9" {
			t.Fatalf("unexpected claims: %v", claims)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected cached keys after first fetch, got %d fetches", got)
	}
}

func TestVerifierThrottlesUnknownKidRefetch(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var fetches atomic.Int32
	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{}})
	}))
	defer jwks.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "user_2",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "ins_rotated"
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	verifier := NewVerifier(WithJWKS(jwks.URL), WithHTTPClient(jwks.Client()))
	for i := 0; i < 3; i++ {
		if _, err := verifier.Claims(context.Background(), signed); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Claims() error = %v, want ErrInvalidToken", err)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected unknown kid to refetch once, got %d fetches", got)
	}
}
