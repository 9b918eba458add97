package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlways(t *testing.T) {
	ctx := context.Background()
	leadCtx, err := Always().Lead(ctx)
	require.NoError(t, err)
	assert.Equal(t, ctx, leadCtx)
}

func TestNeverBlocksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	leadCtx, err := Never().Lead(ctx)
	assert.Nil(t, leadCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatic(t *testing.T) {
	_, err := Static(true).Lead(context.Background())
	assert.NoError(t, err)
}
