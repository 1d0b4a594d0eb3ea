package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableSingleSessionPerUser(t *testing.T) {
	assert := assert.New(t)

	tbl := NewTable()
	cfg := Config{Mode: ModeStatic}

	first := New(cfg, "user-1")
	got, started := tbl.Start("user-1", first)
	assert.True(started)
	assert.Same(first, got)

	// second session for the same user is rejected; the open one survives
	second := New(cfg, "user-1")
	got, started = tbl.Start("user-1", second)
	assert.False(started)
	assert.Same(first, got)

	// other users are unaffected
	other := New(cfg, "user-2")
	_, started = tbl.Start("user-2", other)
	assert.True(started)

	got, ok := tbl.Get("user-1")
	assert.True(ok)
	assert.Same(first, got)

	tbl.Remove("user-1")
	_, ok = tbl.Get("user-1")
	assert.False(ok)

	// after removal a new session can start
	_, started = tbl.Start("user-1", second)
	assert.True(started)
}
