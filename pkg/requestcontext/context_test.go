package requestcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, UserID(ctx))
	assert.Empty(t, Role(ctx))
	assert.Empty(t, RequestID(ctx))

	ctx = WithPrincipal(ctx, "a-1", "admin")
	ctx = WithRequestID(ctx, "req-1")

	assert.Equal(t, "a-1", UserID(ctx))
	assert.Equal(t, "admin", Role(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestPrincipalIsReplacedNotMerged(t *testing.T) {
	ctx := WithPrincipal(context.Background(), "s-1", "secretary")
	ctx = WithPrincipal(ctx, "a-1", "admin")

	assert.Equal(t, "a-1", UserID(ctx))
	assert.Equal(t, "admin", Role(ctx))
}
