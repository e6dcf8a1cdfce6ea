package platform

import (
	"context"
	"time"
)

// ChannelType distinguishes the channel shapes the moderator cares about.
type ChannelType int

const (
	ChannelTypeText ChannelType = iota
	ChannelTypeForum
	ChannelTypeForumPost
	ChannelTypeThread
)

// Channel is the wire view of a channel, forum, post or thread.
type Channel struct {
	ID            string
	ParentID      string
	GuildID       string
	Name          string
	Type          ChannelType
	OwnerID       string
	Locked        bool
	Archived      bool
	AppliedTags   []string
	AvailableTags []Tag
}

// IsThread reports whether the channel is a moderatable conversation unit.
func (c *Channel) IsThread() bool {
	return c.Type == ChannelTypeForumPost || c.Type == ChannelTypeThread
}

type Tag struct {
	ID   string
	Name string
}

type User struct {
	ID       string
	Username string
	Bot      bool
}

type Member struct {
	User
	DisplayName string
	AvatarURL   string
	RoleIDs     []string
}

// Mention returns the member's platform mention string.
func (m *Member) Mention() string {
	return "<@" + m.ID + ">"
}

type Guild struct {
	ID      string
	Name    string
	IconURL string
}

type Message struct {
	ID             string
	ChannelID      string
	Content        string
	Author         User
	Pinned         bool
	AttachmentURLs []string
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	FooterText  string
	Timestamp   time.Time
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

func (e *Embed) AddField(name, value string, inline bool) {
	e.Fields = append(e.Fields, EmbedField{Name: name, Value: value, Inline: inline})
}

type Poll struct {
	Question         string
	Answers          []string
	DurationHours    int
	AllowMultiselect bool
}

type Webhook struct {
	ID        string
	ChannelID string
	Token     string
}

// ChannelEdit carries the channel fields to change; nil fields are untouched.
type ChannelEdit struct {
	Locked      *bool
	Archived    *bool
	Name        *string
	AppliedTags *[]string
}

// Client is the narrow boundary with the chat platform. The core consumes
// these capabilities and nothing else; rendering and command registration
// live behind it.
type Client interface {
	FetchChannel(ctx context.Context, channelID string) (*Channel, error)
	FetchUser(ctx context.Context, userID string) (*User, error)
	FetchMember(ctx context.Context, guildID, userID string) (*Member, error)
	FetchGuild(ctx context.Context, guildID string) (*Guild, error)
	ListActiveThreads(ctx context.Context, guildID string) ([]*Channel, error)

	EditChannel(ctx context.Context, channelID string, edit ChannelEdit) error
	SendMessage(ctx context.Context, channelID, content string) (*Message, error)
	SendEmbed(ctx context.Context, channelID string, embed *Embed) error
	SendDirectEmbed(ctx context.Context, userID string, embed *Embed) error
	SendPoll(ctx context.Context, channelID string, poll *Poll) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	PinMessage(ctx context.Context, channelID, messageID string) error
	UnpinMessage(ctx context.Context, channelID, messageID string) error

	CreateWebhook(ctx context.Context, channelID, name string) (*Webhook, error)
	DeleteWebhook(ctx context.Context, webhookID string) error
	SendWebhook(ctx context.Context, webhook *Webhook, content, username, avatarURL string) error
}
