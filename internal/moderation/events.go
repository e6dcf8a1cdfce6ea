package moderation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"forum-warden/internal/crash"
	"forum-warden/internal/logger"
	"forum-warden/internal/models"
	"forum-warden/internal/platform"
)

var manageUserPattern = regexp.MustCompile(`^manage_user:(\d+):(\d+):(\d+)$`)

// HandleMessageCreated processes one inbound message: activity stats for
// featured forums and ban enforcement for moderated threads.
func (s *Service) HandleMessageCreated(ctx context.Context, event *platform.MessageCreatedEvent) {
	if event.GuildID != s.cfg.Guild.ID {
		return
	}
	if event.Message.Author.Bot {
		return
	}

	if event.Channel.Type == platform.ChannelTypeForumPost && s.isFeaturedForum(event.Channel.ParentID) {
		if err := s.store.RecordMessage(event.Channel.ID); err != nil {
			logger.Errorf("Error recording message for post %s: %v", event.Channel.ID, err)
		}
	}

	if !event.Channel.IsThread() || event.Message.Content == "" {
		return
	}

	// The ban verdict runs off the hot path so a slow lookup or deletion
	// never stalls message fan-out. The ingress context dies as soon as the
	// event is acknowledged, so enforcement runs on a detached context.
	channelID, postID, authorID := event.Channel.ParentID, event.Channel.ID, event.Message.Author.ID
	messageID := event.Message.ID
	enforceCtx := context.WithoutCancel(ctx)
	crash.SafeGoroutine("ban-enforcement", func() {
		if !s.cache.Lookup(channelID, postID, authorID) {
			return
		}
		if err := s.client.DeleteMessage(enforceCtx, postID, messageID); err != nil {
			logger.Errorf("Error deleting message %s from banned user %s: %v", messageID, authorID, err)
			s.enqueueDeletion(postID, messageID, authorID)
		}
	})
}

// HandleThreadCreated renames a fresh poll-forum post with a timestamp prefix
// and opens it with a petition poll.
func (s *Service) HandleThreadCreated(ctx context.Context, event *platform.ThreadCreatedEvent) {
	if event.GuildID != s.cfg.Guild.ID {
		return
	}
	if event.Thread.ParentID != s.cfg.Guild.PollForumID {
		return
	}
	if event.Thread.OwnerID == "" {
		return
	}

	owner, err := s.client.FetchMember(ctx, event.GuildID, event.Thread.OwnerID)
	if err != nil {
		logger.Errorf("Error fetching owner of thread %s: %v", event.Thread.ID, err)
		return
	}
	if owner.Bot {
		return
	}

	newName := fmt.Sprintf("[%s] %s", time.Now().Format("0601021504"), event.Thread.Name)
	if err := s.client.EditChannel(ctx, event.Thread.ID, platform.ChannelEdit{Name: &newName}); err != nil {
		logger.Errorf("Error renaming thread %s: %v", event.Thread.ID, err)
		return
	}

	poll := &platform.Poll{
		Question:         "Do you support this petition?",
		Answers:          []string{"Support", "Oppose", "Abstain"},
		DurationHours:    48,
		AllowMultiselect: false,
	}
	if err := s.client.SendPoll(ctx, event.Thread.ID, poll); err != nil {
		logger.Errorf("Error sending opening poll to thread %s: %v", event.Thread.ID, err)
	}
}

// HandleInteraction dispatches a submitted manage-user component selection to
// the matching operation.
func (s *Service) HandleInteraction(ctx context.Context, event *platform.InteractionEvent) (*models.ActionRecord, error) {
	match := manageUserPattern.FindStringSubmatch(event.CustomID)
	if match == nil {
		return nil, fmt.Errorf("invalid custom ID format: %s", event.CustomID)
	}
	if len(event.Values) == 0 {
		return nil, fmt.Errorf("no action selected")
	}

	userID := match[3]
	target, err := s.client.FetchMember(ctx, event.GuildID, userID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			logger.Warningf("User %s not found in the server", userID)
		}
		return nil, err
	}

	req := Request{
		Actor:   event.Actor,
		Channel: event.Channel,
		Target:  target,
	}

	switch event.Values[0] {
	case "ban":
		return s.Ban(ctx, req)
	case "unban":
		return s.Unban(ctx, req)
	case "share_permissions":
		return s.SharePermissions(ctx, req)
	case "revoke_permissions":
		return s.RevokePermissions(ctx, req)
	default:
		return nil, fmt.Errorf("invalid action: %s", event.Values[0])
	}
}

func (s *Service) isFeaturedForum(forumID string) bool {
	for _, id := range s.cfg.Guild.FeaturedForums {
		if id == forumID {
			return true
		}
	}
	return false
}

// enqueueDeletion records a failed deletion for the retry sweep when database
// support is enabled.
func (s *Service) enqueueDeletion(channelID, messageID, userID string) {
	if s.deletions == nil {
		return
	}
	pd := &models.PendingDeletion{
		ChannelID: channelID,
		MessageID: messageID,
		UserID:    userID,
	}
	if err := s.deletions.Add(pd); err != nil {
		logger.Warningf("Error enqueueing pending deletion for message %s: %v", messageID, err)
	}
}

// StartDeletionRetry runs the periodic sweep that drains the pending-deletion
// queue. No-op when database support is disabled.
func (s *Service) StartDeletionRetry(ctx context.Context, interval time.Duration) {
	if s.deletions == nil {
		return
	}
	crash.SafeGoroutine("deletion-retry", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.retryPendingDeletions(ctx)
			}
		}
	})
}

func (s *Service) retryPendingDeletions(ctx context.Context) {
	pending, err := s.deletions.GetAll()
	if err != nil {
		logger.Warningf("Error loading pending deletions: %v", err)
		return
	}
	for _, pd := range pending {
		if err := s.client.DeleteMessage(ctx, pd.ChannelID, pd.MessageID); err != nil {
			logger.Warningf("Retry failed for pending deletion %s/%s: %v", pd.ChannelID, pd.MessageID, err)
			continue
		}
		if err := s.deletions.Remove(pd.ChannelID, pd.MessageID); err != nil {
			logger.Warningf("Error removing completed pending deletion %s/%s: %v", pd.ChannelID, pd.MessageID, err)
		}
	}
}
