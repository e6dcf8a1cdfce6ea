package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-warden/internal/platform"
)

func TestHandleMessageCreatedRecordsStats(t *testing.T) {
	f := newFixture(t)

	f.svc.HandleMessageCreated(context.Background(), &platform.MessageCreatedEvent{
		GuildID: "guild",
		Channel: thread("owner"),
		Message: platform.Message{ID: "msg", Content: "hello", Author: platform.User{ID: "poster"}},
	})

	stats, ok := f.store.StatsFor("post")
	require.True(t, ok)
	assert.Equal(t, 1, stats.MessageCount)
}

func TestHandleMessageCreatedIgnoresBots(t *testing.T) {
	f := newFixture(t)

	f.svc.HandleMessageCreated(context.Background(), &platform.MessageCreatedEvent{
		GuildID: "guild",
		Channel: thread("owner"),
		Message: platform.Message{ID: "msg", Content: "hello", Author: platform.User{ID: "bot", Bot: true}},
	})

	_, ok := f.store.StatsFor("post")
	assert.False(t, ok)
}

func TestHandleMessageCreatedIgnoresOtherGuilds(t *testing.T) {
	f := newFixture(t)

	f.svc.HandleMessageCreated(context.Background(), &platform.MessageCreatedEvent{
		GuildID: "other-guild",
		Channel: thread("owner"),
		Message: platform.Message{ID: "msg", Content: "hello", Author: platform.User{ID: "poster"}},
	})

	_, ok := f.store.StatsFor("post")
	assert.False(t, ok)
}

func TestHandleMessageCreatedDeletesBannedUserMessage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Ban("forum", "post", "banned"))

	f.svc.HandleMessageCreated(context.Background(), &platform.MessageCreatedEvent{
		GuildID: "guild",
		Channel: thread("owner"),
		Message: platform.Message{ID: "msg", Content: "sneaky", Author: platform.User{ID: "banned"}},
	})

	// Enforcement runs off the hot path.
	assert.Eventually(t, func() bool {
		deleted := f.client.deletedMessages()
		return len(deleted) == 1 && deleted[0] == "post/msg"
	}, time.Second, 10*time.Millisecond)
}

func TestBanEnforcementOutlivesIngressContext(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Ban("forum", "post", "banned"))

	// The ingress cancels its request context as soon as the event is
	// acknowledged; enforcement must still complete.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.svc.HandleMessageCreated(ctx, &platform.MessageCreatedEvent{
		GuildID: "guild",
		Channel: thread("owner"),
		Message: platform.Message{ID: "msg", Content: "sneaky", Author: platform.User{ID: "banned"}},
	})

	assert.Eventually(t, func() bool {
		deleted := f.client.deletedMessages()
		return len(deleted) == 1 && deleted[0] == "post/msg"
	}, time.Second, 10*time.Millisecond)
}

func TestHandleThreadCreatedRenamesAndOpensPoll(t *testing.T) {
	f := newFixture(t)
	f.client.members["author"] = &platform.Member{User: platform.User{ID: "author", Username: "author"}}

	f.svc.HandleThreadCreated(context.Background(), &platform.ThreadCreatedEvent{
		GuildID: "guild",
		Thread: platform.Channel{
			ID:       "petition",
			ParentID: "poll-forum",
			Name:     "Lower the fees",
			Type:     platform.ChannelTypeForumPost,
			OwnerID:  "author",
		},
	})

	edits := f.client.edits["petition"]
	require.Len(t, edits, 1)
	require.NotNil(t, edits[0].Name)
	assert.Regexp(t, `^\[\d{10}\] Lower the fees$`, *edits[0].Name)

	poll := f.client.polls["petition"]
	require.NotNil(t, poll)
	assert.Equal(t, "Do you support this petition?", poll.Question)
	assert.Equal(t, []string{"Support", "Oppose", "Abstain"}, poll.Answers)
	assert.Equal(t, 48, poll.DurationHours)
}

func TestHandleThreadCreatedIgnoresOtherForums(t *testing.T) {
	f := newFixture(t)

	f.svc.HandleThreadCreated(context.Background(), &platform.ThreadCreatedEvent{
		GuildID: "guild",
		Thread:  thread("owner"),
	})

	assert.Empty(t, f.client.edits)
}

func TestHandleThreadCreatedIgnoresBotOwners(t *testing.T) {
	f := newFixture(t)
	f.client.members["bot"] = &platform.Member{User: platform.User{ID: "bot", Bot: true}}

	f.svc.HandleThreadCreated(context.Background(), &platform.ThreadCreatedEvent{
		GuildID: "guild",
		Thread: platform.Channel{
			ID:       "petition",
			ParentID: "poll-forum",
			Name:     "Bot spam",
			Type:     platform.ChannelTypeForumPost,
			OwnerID:  "bot",
		},
	})

	assert.Empty(t, f.client.edits)
	assert.Empty(t, f.client.polls)
}

func TestHandleInteractionDispatchesBan(t *testing.T) {
	f := newFixture(t)
	f.client.members["42"] = &platform.Member{User: platform.User{ID: "42", Username: "target"}}

	rec, err := f.svc.HandleInteraction(context.Background(), &platform.InteractionEvent{
		GuildID:  "guild",
		CustomID: "manage_user:1:2:42",
		Values:   []string{"ban"},
		Actor:    member("owner"),
		Channel:  thread("owner"),
	})

	require.NoError(t, err)
	assert.Equal(t, "ban", rec.Action.String())
	assert.True(t, f.store.IsBanned("forum", "post", "42"))
}

func TestHandleInteractionRejectsMalformedCustomID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleInteraction(context.Background(), &platform.InteractionEvent{
		GuildID:  "guild",
		CustomID: "manage_user:not:numeric:id",
		Values:   []string{"ban"},
		Actor:    member("owner"),
		Channel:  thread("owner"),
	})

	require.Error(t, err)
}

func TestHandleInteractionUnknownTarget(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleInteraction(context.Background(), &platform.InteractionEvent{
		GuildID:  "guild",
		CustomID: "manage_user:1:2:42",
		Values:   []string{"ban"},
		Actor:    member("owner"),
		Channel:  thread("owner"),
	})

	require.ErrorIs(t, err, platform.ErrNotFound)
}

func TestHandleInteractionRejectsUnknownAction(t *testing.T) {
	f := newFixture(t)
	f.client.members["42"] = &platform.Member{User: platform.User{ID: "42"}}

	_, err := f.svc.HandleInteraction(context.Background(), &platform.InteractionEvent{
		GuildID:  "guild",
		CustomID: "manage_user:1:2:42",
		Values:   []string{"explode"},
		Actor:    member("owner"),
		Channel:  thread("owner"),
	})

	require.Error(t, err)
}
