package gameid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableIDCountersAreMonotonicPerClass(t *testing.T) {
	g := NewTableIDGenerator()

	assert.Equal(t, "sys-texas-1-2-1", g.System("texas", "1-2"))
	assert.Equal(t, "sys-texas-1-2-2", g.System("texas", "1-2"))

	// A different class starts its own counter at 1.
	assert.Equal(t, "sys-omaha-2-5-1", g.System("omaha", "2-5"))

	// User tables are a distinct class from system tables of the same stake.
	assert.Equal(t, "usr-texas-1-2-1", g.User("texas", "1-2"))
}
