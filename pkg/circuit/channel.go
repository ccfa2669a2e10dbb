package circuit

// Channel routes an event to a subset of handlers. A channel is either a
// plain string token or, for component-targeted dispatch, a reference to a
// specific Component. Resolution against an instance-targeted channel
// consults only the target's own handlers and accepts each of them whatever
// its channel (see Manager.resolveUncached), which is the behavior the
// source relies on to let a component receive events it would otherwise
// filter out.
type Channel struct {
	name   string
	target *Component
}

// Chan builds a plain string channel. The empty string is treated the same
// as WildcardChannel.
func Chan(name string) Channel {
	if name == "" {
		name = wildcardToken
	}
	return Channel{name: name}
}

// ChanComponent builds an instance-targeted channel. Resolution against this
// channel considers only c's own handlers (not its descendants, siblings or
// ancestors) and ignores their channel restriction (§4.4 step 4 of the spec
// this module implements), but still applies c's globals bucket and
// name/wildcard matching.
func ChanComponent(c *Component) Channel {
	return Channel{target: c}
}

const wildcardToken = "*"

// WildcardChannel matches every handler regardless of its own channel.
var WildcardChannel = Chan(wildcardToken)

// IsWildcard reports whether this channel is the "*" token.
func (c Channel) IsWildcard() bool {
	return c.target == nil && c.name == wildcardToken
}

// IsComponentTargeted reports whether this channel names a specific
// Component rather than a string token.
func (c Channel) IsComponentTargeted() bool {
	return c.target != nil
}

// Target returns the targeted Component, or nil for a string channel.
func (c Channel) Target() *Component {
	return c.target
}

// Key returns a stable, comparable identity for this channel, used as part
// of the resolution cache key (spec §9, "cache key identity").
func (c Channel) Key() string {
	if c.target != nil {
		return "#" + c.target.ID()
	}
	return c.name
}

func (c Channel) equal(other Channel) bool {
	if c.target != nil || other.target != nil {
		return c.target == other.target
	}
	return c.name == other.name
}

func channelKeys(channels []Channel) string {
	if len(channels) == 0 {
		return ""
	}
	s := channels[0].Key()
	for _, c := range channels[1:] {
		s += "\x00" + c.Key()
	}
	return s
}
