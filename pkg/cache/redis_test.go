package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/Fepozopo/promptcanvas/pkg/bgremove"
)

var _ bgremove.MaskCache = (*RedisCache)(nil)

func TestClosedClientReportsErrors(t *testing.T) {
	c := NewRedisCache(Options{Addr: "127.0.0.1:1", TTL: time.Minute})
	assert.NoError(t, c.Close())

	data, err := c.GetMask(context.Background(), "abc")
	assert.ErrorIs(t, err, redis.ErrClosed)
	assert.Nil(t, data)
	assert.ErrorIs(t, c.SetMask(context.Background(), "abc", []byte{1}), redis.ErrClosed)
	assert.Error(t, c.Ping(context.Background()))
}
