package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCachesUntilInvalidated(t *testing.T) {
	m := NewManager("root")
	m.AddHandler(HandlerDescriptor{Names: []string{"Go"}, Func: func(Event) (interface{}, error) { return nil, nil }})

	first := m.resolve("Go", []Channel{Chan("*")})
	require.Len(t, first, 1)

	second := m.resolve("Go", []Channel{Chan("*")})
	assert.Equal(t, first, second)

	m.AddHandler(HandlerDescriptor{Names: []string{"Go"}, Func: func(Event) (interface{}, error) { return nil, nil }})
	third := m.resolve("Go", []Channel{Chan("*")})
	assert.Len(t, third, 2)
}

func TestComponentTargetedChannelOnlyMatchesTargetsOwnHandlers(t *testing.T) {
	m := NewManager("root")
	other := NewComponent("other", "widget")
	other.SetChannel("audio")
	require.NoError(t, m.Register(other))
	other.AddHandler(HandlerDescriptor{Names: []string{"Ping"}})

	target := NewComponent("target", "widget")
	require.NoError(t, m.Register(target))

	// A handler registered on a different component must not match a
	// channel targeting target, even though target has no handlers of its
	// own yet — resolution redirects entirely to target, it does not fall
	// back to the rest of the tree.
	assert.Empty(t, m.resolve("Ping", []Channel{ChanComponent(target)}))

	// Once target has its own matching handler, it is picked up.
	id := target.AddHandler(HandlerDescriptor{Names: []string{"Ping"}})
	handlers := m.resolve("Ping", []Channel{ChanComponent(target)})
	require.Len(t, handlers, 1)
	assert.Equal(t, id, handlers[0].ID)

	// A sibling's matching handler is still excluded.
	for _, h := range handlers {
		assert.NotEqual(t, "other", h.Component.ID())
	}
}

func TestGlobalHandlerMatchesEveryName(t *testing.T) {
	m := NewManager("root")
	m.AddHandler(HandlerDescriptor{Func: func(Event) (interface{}, error) { return nil, nil }})

	assert.Len(t, m.resolve("Anything", []Channel{Chan("*")}), 1)
	assert.Len(t, m.resolve("SomethingElse", []Channel{Chan("weird")}), 1)
}
