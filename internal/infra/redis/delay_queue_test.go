//go:build !integration

package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popup-shop/internal/domain/model"
)

func TestJobCodec_RoundTripAtMillis(t *testing.T) {
	until := time.Date(2026, 3, 14, 23, 59, 59, 999_000_000, time.UTC)
	job := model.ExpiryJob{ShopID: "shop-1", ActiveUntil: until}

	member, err := encodeJob(job)
	require.NoError(t, err)
	assert.JSONEq(t, `{"shop_id":"shop-1","active_until":1773532799999}`, member)

	got, err := decodeJob(member)
	require.NoError(t, err)
	assert.Equal(t, "shop-1", got.ShopID)
	assert.True(t, got.ActiveUntil.Equal(until))
}

func TestJobCodec_SameWindowSameMember(t *testing.T) {
	until := time.Now()
	a, err := encodeJob(model.ExpiryJob{ShopID: "s", ActiveUntil: until})
	require.NoError(t, err)
	// Sub-millisecond noise must not create a second member.
	b, err := encodeJob(model.ExpiryJob{ShopID: "s", ActiveUntil: model.Millis(until)})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeJob_Garbage(t *testing.T) {
	_, err := decodeJob("not json")
	assert.Error(t, err)
}

func TestClientKey(t *testing.T) {
	c := &Client{prefix: "shop"}
	assert.Equal(t, "shop:expiry:due", c.key("expiry", "due"))
	assert.Equal(t, "lock:slug:x", (&Client{}).key("lock", "slug:x"))
}
