package imagecache

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](3)
	for i := 0; i < 4; i++ {
		c.Set("k"+strconv.Itoa(i), i)
	}

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("k0")
	assert.False(t, ok, "oldest key should be evicted")
	for i := 1; i < 4; i++ {
		v, ok := c.Get("k" + strconv.Itoa(i))
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestGetPromotes(t *testing.T) {
	c := New[string](2)
	c.Set("a", "A")
	c.Set("b", "B")

	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Set("c", "C")
	_, ok = c.Get("a")
	assert.True(t, ok, "a was read last and must survive")
	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently touched")
}

func TestSetExistingRefreshes(t *testing.T) {
	c := New[int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := New[int](0)
	assert.Equal(t, DefaultCapacity, c.Capacity())
	c.Set("a", 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}
