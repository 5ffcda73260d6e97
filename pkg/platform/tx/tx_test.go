package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type handle struct{ name string }

func TestFrom(t *testing.T) {
	ctx := context.Background()

	_, ok := From[*handle](ctx)
	assert.False(t, ok)

	h := &handle{name: "outer"}
	ctx = WithTx(ctx, h)
	got, ok := From[*handle](ctx)
	assert.True(t, ok)
	assert.Same(t, h, got)

	_, ok = From[string](ctx)
	assert.False(t, ok, "wrong type is not a match")

	assert.Equal(t, ctx, WithTx(ctx, nil))
}
