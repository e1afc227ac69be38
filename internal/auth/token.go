package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Room permission scopes understood by the collaboration provider.
const (
	PermRoomWrite         = "room:write"
	PermRoomRead          = "room:read"
	PermRoomPresenceWrite = "room:presence:write"
	PermCommentsWrite     = "comments:write"
)

type RoomUserInfo struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Color  string `json:"color"`
}

// RoomClaims is the payload of a room access token.
type RoomClaims struct {
	UserID   string              `json:"uid"`
	UserInfo RoomUserInfo        `json:"userInfo"`
	Perms    map[string][]string `json:"perms"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

func IssueRoomToken(secret []byte, claims RoomClaims) (string, error) {
	if claims.UserID == "" {
		return "", fmt.Errorf("issue room token: %w", ErrInvalidToken)
	}
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign room token: %w", err)
	}
	return signed, nil
}

func ParseRoomToken(secret []byte, token string) (RoomClaims, error) {
	var claims RoomClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return RoomClaims{}, ErrExpiredToken
		}
		return RoomClaims{}, ErrInvalidToken
	}
	if claims.UserID == "" || claims.ID == "" {
		return RoomClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// ExpiresIn is a convenience for building RegisteredClaims.
func ExpiresIn(now time.Time, ttl time.Duration) *jwt.NumericDate {
	return jwt.NewNumericDate(now.Add(ttl))
}

func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}
