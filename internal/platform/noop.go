package platform

import (
	"context"

	"forum-warden/internal/logger"
)

// NopClient is the stand-in Client used until a platform adapter is wired in.
// Lookups report ErrNotFound and outbound calls are logged and dropped.
type NopClient struct{}

var _ Client = NopClient{}

func (NopClient) FetchChannel(ctx context.Context, channelID string) (*Channel, error) {
	return nil, ErrNotFound
}

func (NopClient) FetchUser(ctx context.Context, userID string) (*User, error) {
	return nil, ErrNotFound
}

func (NopClient) FetchMember(ctx context.Context, guildID, userID string) (*Member, error) {
	return nil, ErrNotFound
}

func (NopClient) FetchGuild(ctx context.Context, guildID string) (*Guild, error) {
	return nil, ErrNotFound
}

func (NopClient) ListActiveThreads(ctx context.Context, guildID string) ([]*Channel, error) {
	return nil, nil
}

func (NopClient) EditChannel(ctx context.Context, channelID string, edit ChannelEdit) error {
	logger.Debugf("NopClient: dropping channel edit for %s", channelID)
	return nil
}

func (NopClient) SendMessage(ctx context.Context, channelID, content string) (*Message, error) {
	logger.Debugf("NopClient: dropping message to channel %s", channelID)
	return &Message{ChannelID: channelID, Content: content}, nil
}

func (NopClient) SendEmbed(ctx context.Context, channelID string, embed *Embed) error {
	logger.Debugf("NopClient: dropping embed to channel %s", channelID)
	return nil
}

func (NopClient) SendDirectEmbed(ctx context.Context, userID string, embed *Embed) error {
	logger.Debugf("NopClient: dropping direct embed to user %s", userID)
	return nil
}

func (NopClient) SendPoll(ctx context.Context, channelID string, poll *Poll) error {
	logger.Debugf("NopClient: dropping poll to channel %s", channelID)
	return nil
}

func (NopClient) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	logger.Debugf("NopClient: dropping deletion of message %s in channel %s", messageID, channelID)
	return nil
}

func (NopClient) PinMessage(ctx context.Context, channelID, messageID string) error {
	return nil
}

func (NopClient) UnpinMessage(ctx context.Context, channelID, messageID string) error {
	return nil
}

func (NopClient) CreateWebhook(ctx context.Context, channelID, name string) (*Webhook, error) {
	return &Webhook{ChannelID: channelID}, nil
}

func (NopClient) DeleteWebhook(ctx context.Context, webhookID string) error {
	return nil
}

func (NopClient) SendWebhook(ctx context.Context, webhook *Webhook, content, username, avatarURL string) error {
	return nil
}
