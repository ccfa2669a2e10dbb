package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireAssignsChannelFallbackOrder(t *testing.T) {
	m := NewManager("root")
	child := NewComponent("child", "widget")
	child.SetChannel("audio")
	require.NoError(t, m.Register(child))

	ev := NewEvent("Ping")
	_, err := child.Fire(ev)
	require.NoError(t, err)
	require.Len(t, ev.Channels(), 1)
	assert.Equal(t, "audio", ev.Channels()[0].Key())
}

func TestFireWithoutRootErrors(t *testing.T) {
	c := NewComponent("orphan", "widget")
	_, err := c.Fire(NewEvent("Ping"))
	assert.Error(t, err)
}

func TestRegisterMigratesQueuedEvents(t *testing.T) {
	root := NewManager("root")
	sub := NewManager("sub")

	_, err := sub.Fire(NewEvent("Early"))
	require.NoError(t, err)
	require.Equal(t, 1, sub.queueLen())

	require.NoError(t, root.Register(&sub.Component))
	assert.Equal(t, 0, sub.queueLen())
	assert.Equal(t, 1, root.queueLen())
	assert.Equal(t, root, sub.Root())
}

func TestUnregisterRestoresSelfRoot(t *testing.T) {
	root := NewManager("root")
	sub := NewManager("sub")
	require.NoError(t, root.Register(&sub.Component))
	require.Equal(t, root, sub.Root())

	ok := root.Unregister(&sub.Component)
	require.True(t, ok)
	assert.Equal(t, sub, sub.Root())
}

func TestContainsAndContainsKind(t *testing.T) {
	root := NewManager("root")
	mid := NewComponent("mid", "group")
	leaf := NewComponent("leaf", "widget")
	require.NoError(t, root.Register(mid))
	require.NoError(t, mid.Register(leaf))

	assert.True(t, root.Contains("leaf"))
	assert.True(t, root.ContainsKind("widget"))
	assert.False(t, root.ContainsKind("nonexistent"))
}

func TestRemoveHandlerIsIdempotent(t *testing.T) {
	c := NewComponent("c", "widget")
	id := c.AddHandler(HandlerDescriptor{Names: []string{"Ping"}, Func: func(Event) (interface{}, error) { return nil, nil }})

	assert.True(t, c.RemoveHandler(id))
	assert.False(t, c.RemoveHandler(id))
	assert.False(t, c.RemoveHandler("never-registered"))
}
