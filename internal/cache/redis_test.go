package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	c := NewRedisCache("localhost:6379", "storefront")
	defer c.Close()

	assert.Equal(t, "storefront:track:ORD-1", c.GenerateKey("track", "ORD-1"))
}

func TestStringResult(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name    string
		cmd     *redis.StringCmd
		want    string
		wantErr error
	}{
		{name: "hit", cmd: redis.NewStringResult(`{"id":1}`, nil), want: `{"id":1}`},
		{name: "miss", cmd: redis.NewStringResult("", redis.Nil), want: ""},
		{name: "failure", cmd: redis.NewStringResult("", boom), wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stringResult(tt.cmd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGet_Unreachable(t *testing.T) {
	c := NewRedisCache("127.0.0.1:1", "storefront")
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := c.Get(ctx, c.GenerateKey("track", "ORD-1"))
	assert.Error(t, err, "an unreachable server is a failure, not a miss")
	assert.Empty(t, v)
}
