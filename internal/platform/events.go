package platform

// Events consumed from the platform. The gateway decodes incoming envelopes
// into these and hands them to the moderation handlers.

type MessageCreatedEvent struct {
	GuildID string
	Channel Channel
	Message Message
}

type ThreadCreatedEvent struct {
	GuildID string
	Thread  Channel
}

// InteractionEvent is a submitted component interaction (select menu, button).
type InteractionEvent struct {
	GuildID  string
	CustomID string
	Values   []string
	Actor    Member
	Channel  Channel
}
