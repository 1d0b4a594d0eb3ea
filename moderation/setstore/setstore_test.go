package setstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemSetStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	ss := NewMemSetStore()

	out, err := ss.InSet(ctx, "slurs", "badword")
	assert.NoError(err)
	assert.False(out)

	assert.NoError(ss.AddToSet(ctx, "slurs", []string{"badword", "worseword"}))

	out, err = ss.InSet(ctx, "slurs", "badword")
	assert.NoError(err)
	assert.True(out)

	out, err = ss.InSet(ctx, "slurs", "fineword")
	assert.NoError(err)
	assert.False(out)

	// adding to an existing set extends it
	assert.NoError(ss.AddToSet(ctx, "slurs", []string{"thirdword"}))
	out, err = ss.InSet(ctx, "slurs", "worseword")
	assert.NoError(err)
	assert.True(out)
	out, err = ss.InSet(ctx, "slurs", "thirdword")
	assert.NoError(err)
	assert.True(out)
}
