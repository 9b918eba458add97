package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)

	_, err = NewClient(Addrs([]string{"127.0.0.1:6379"}), Model("ring"))
	assert.Error(t, err)
}

func TestUniversalOptions(t *testing.T) {
	c, err := NewClient(
		Addrs([]string{"10.0.0.1:26379", "10.0.0.2:26379"}),
		Model(typeSentinel),
		DB(2),
		ReadTimeout(5),
	)
	require.NoError(t, err)
	defer func() {
		_ = c.Close()
	}()

	uo := c.universal()
	assert.Equal(t, "redis"+defaultMasterSuffix, uo.MasterName)
	assert.Equal(t, 2, uo.DB)
	assert.Equal(t, 5*time.Second, uo.ReadTimeout)
	assert.Equal(t, time.Duration(defaultWriteTimeout)*time.Second, uo.WriteTimeout)
	assert.Equal(t, defaultPoolSize, uo.PoolSize)

	c.model = typeCluster
	assert.Empty(t, c.universal().MasterName)
}

func TestNewMutex(t *testing.T) {
	c, err := NewClient(Addrs([]string{"127.0.0.1:6379"}))
	require.NoError(t, err)
	defer func() {
		_ = c.Close()
	}()

	m := c.NewMutex("consul-balancer/leader", 0, "host-a")
	assert.Equal(t, "consul-balancer/leader", m.Name())
	assert.Equal(t, defaultLockExpiry, m.Expiry())
	assert.Equal(t, 3*time.Second, c.NewMutex("k", 3*time.Second, "").Expiry())
}
