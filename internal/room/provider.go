package room

import "time"

const (
	AuthEndpoint    = "/api/liveblocks-auth"
	DefaultThrottle = 16 * time.Millisecond
)

// ProviderConfig is what the collaboration provider needs to join a room.
type ProviderConfig struct {
	RoomID       string `json:"roomId"`
	AuthEndpoint string `json:"authEndpoint"`
	ThrottleMS   int64  `json:"throttle"`
}

func NewProviderConfig(roomID string, throttle time.Duration) ProviderConfig {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	return ProviderConfig{
		RoomID:       roomID,
		AuthEndpoint: AuthEndpoint,
		ThrottleMS:   throttle.Milliseconds(),
	}
}
