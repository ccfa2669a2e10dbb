package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueSetIgnoresNil(t *testing.T) {
	v := NewValue()
	v.Set("first")
	v.Set(nil)
	assert.Equal(t, "first", v.Get())
}

func TestValueInformDeliversExactlyOnce(t *testing.T) {
	v := NewValue()
	calls := 0
	v.Observe(func(final bool) { calls++ })

	v.Inform(true)
	v.Inform(true)

	assert.Equal(t, 1, calls)
	assert.True(t, v.Done())
}

func TestValueObserveAfterInformFiresImmediately(t *testing.T) {
	v := NewValue()
	v.Inform(true)

	called := false
	v.Observe(func(final bool) { called = true })
	assert.True(t, called)
}
