package store

import (
	"testing"
	"time"
)

func TestPoolConfigDefaults(t *testing.T) {
	cases := []struct {
		name string
		in   PoolConfig
		want PoolConfig
	}{
		{
			name: "zero",
			in:   PoolConfig{},
			want: PoolConfig{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute, ConnMaxIdleTime: 5 * time.Minute},
		},
		{
			name: "idle capped by open",
			in:   PoolConfig{MaxOpenConns: 4, MaxIdleConns: 8},
			want: PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2, ConnMaxLifetime: 30 * time.Minute, ConnMaxIdleTime: 5 * time.Minute},
		},
		{
			name: "explicit",
			in:   PoolConfig{MaxOpenConns: 20, MaxIdleConns: 10, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: time.Minute},
			want: PoolConfig{MaxOpenConns: 20, MaxIdleConns: 10, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: time.Minute},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.withDefaults(); got != tc.want {
				t.Fatalf("withDefaults() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
