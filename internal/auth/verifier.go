package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates session tokens issued by the identity provider and
// returns their claims. HS256 tokens are checked against a shared secret,
// RS256 tokens against keys published at a JWKS endpoint.
type Verifier struct {
	secret          []byte
	issuer          string
	jwksURL         string
	httpClient      *http.Client
	refreshInterval time.Duration
	// minRefreshInterval bounds how often unknown kids can trigger a fetch.
	minRefreshInterval time.Duration

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastFetch   time.Time
	lastAttempt time.Time
}

type Option func(*Verifier)

func WithHMACSecret(secret string) Option {
	return func(v *Verifier) {
		if secret != "" {
			v.secret = []byte(secret)
		}
	}
}

func WithJWKS(url string) Option {
	return func(v *Verifier) { v.jwksURL = url }
}

// WithIssuer requires the "iss" claim to match.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) { v.issuer = issuer }
}

func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.httpClient = c }
}

func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		httpClient:         &http.Client{Timeout: 10 * time.Second},
		refreshInterval:    time.Hour,
		minRefreshInterval: time.Minute,
		keys:               make(map[string]*rsa.PublicKey),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Claims verifies the token and returns its claim bag.
func (v *Verifier) Claims(ctx context.Context, token string) (Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	mapClaims := jwt.MapClaims{}
	_, err := jwt.NewParser(parserOpts...).ParseWithClaims(token, mapClaims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.secret) == 0 {
				return nil, errors.New("hmac session tokens not accepted")
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA:
			kid, _ := t.Header["kid"].(string)
			return v.key(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := Claims(mapClaims)
	if claims.Subject() == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if v.jwksURL == "" {
		return nil, errors.New("rsa session tokens not accepted")
	}

	v.mu.RLock()
	key, found := v.lookupLocked(kid)
	stale := time.Since(v.lastFetch) > v.refreshInterval
	throttled := time.Since(v.lastAttempt) < v.minRefreshInterval
	v.mu.RUnlock()
	if found && (!stale || throttled) {
		return key, nil
	}
	if throttled {
		return nil, fmt.Errorf("no signing key for kid %q", kid)
	}

	if err := v.refresh(ctx); err != nil {
		if found {
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.lookupLocked(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("no signing key for kid %q", kid)
}

func (v *Verifier) lookupLocked(kid string) (*rsa.PublicKey, bool) {
	if key, ok := v.keys[kid]; ok {
		return key, true
	}
	if kid == "" && len(v.keys) == 1 {
		for _, k := range v.keys {
			return k, true
		}
	}
	return nil, false
}

type jwkSet struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *Verifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	v.lastAttempt = time.Now()
	v.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("jwks request: %w", err)
	}
	res, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: unexpected status %d", res.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(res.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		key, err := rsaKey(jwk.N, jwk.E)
		if err != nil {
			return fmt.Errorf("parse jwk %s: %w", jwk.Kid, err)
		}
		keys[jwk.Kid] = key
	}

	v.mu.Lock()
	v.keys = keys
	v.lastFetch = time.Now()
	v.mu.Unlock()
	return nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
