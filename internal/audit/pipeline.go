package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"forum-warden/internal/logger"
	"forum-warden/internal/models"
	"forum-warden/internal/platform"
)

// Pipeline renders moderation-action records and dispatches them to the
// standing log channel, the standing log post, and (conditionally) the
// affected member. Back-to-back duplicates of the same logical action are
// suppressed at one-entry depth.
type Pipeline struct {
	client platform.Client

	guildID      string
	logChannelID string
	logForumID   string
	logPostID    string

	mu         sync.Mutex
	lastLogKey string

	now func() time.Time
}

func NewPipeline(client platform.Client, guildID, logChannelID, logForumID, logPostID string) *Pipeline {
	return &Pipeline{
		client:       client,
		guildID:      guildID,
		logChannelID: logChannelID,
		logForumID:   logForumID,
		logPostID:    logPostID,
		now:          time.Now,
	}
}

// Record builds the log entry for the action and best-effort-delivers it to
// all sinks. It never returns an error to the invoking operation.
func (p *Pipeline) Record(ctx context.Context, rec *models.ActionRecord) {
	logger.Debugf("audit record for action: %s", rec.Action)
	timestamp := p.now().UTC().Unix()

	// Only the most recent key is remembered; this guards against one logical
	// action producing two records via overlapping retry paths.
	logKey := fmt.Sprintf("%s_%s_%d", rec.Action, rec.PostName, timestamp)
	p.mu.Lock()
	if p.lastLogKey == logKey {
		p.mu.Unlock()
		logger.Warningf("Duplicate log detected: %s", logKey)
		return
	}
	p.lastLogKey = logKey
	p.mu.Unlock()

	entry := p.buildEntry(ctx, rec, timestamp)

	// The log post must be writable before dispatch.
	p.unarchiveLogPost(ctx)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := p.client.SendEmbed(ctx, p.logPostID, entry); err != nil {
			logger.Errorf("Failed to send log entry to log post %s: %v", p.logPostID, err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := p.client.SendEmbed(ctx, p.logChannelID, entry); err != nil {
			logger.Errorf("Failed to send log entry to log channel %s: %v", p.logChannelID, err)
		}
	}()

	if rec.Target != nil && !rec.Target.Bot && rec.Action.NotifiesTarget() {
		notification := &platform.Embed{
			Title:       rec.Action.Title() + " Notification",
			Description: rec.NotificationMessage(),
			Color:       rec.Action.Color(),
			Timestamp:   p.now().UTC(),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Delivery failure (e.g. closed DMs) is logged, never surfaced.
			if err := p.client.SendDirectEmbed(ctx, rec.Target.ID, notification); err != nil {
				logger.Warningf("Failed to send notification to %s: %v", rec.Target.Mention(), err)
			}
		}()
	}

	wg.Wait()
}

func (p *Pipeline) buildEntry(ctx context.Context, rec *models.ActionRecord, timestamp int64) *platform.Embed {
	entry := &platform.Embed{
		Title:     "Action Log: " + rec.Action.Title(),
		Color:     rec.Action.Color(),
		Timestamp: p.now().UTC(),
	}

	if guild, err := p.client.FetchGuild(ctx, p.guildID); err == nil {
		entry.FooterText = guild.Name
	}

	entry.AddField("Actor", rec.Actor.Mention(), true)
	if rec.Channel != nil {
		entry.AddField("Post", "<#"+rec.Channel.ID+">", true)
	} else {
		entry.AddField("Post", rec.PostName, true)
	}
	entry.AddField("Time", fmt.Sprintf("<t:%d:F> (<t:%d:R>)", timestamp, timestamp), true)

	if rec.Target != nil {
		entry.AddField("Target", rec.Target.Mention(), true)
	}

	entry.AddField("Result", capitalize(rec.Result), true)
	entry.AddField("Reason", rec.Reason, false)

	if len(rec.Extra) > 0 {
		entry.AddField("Additional Info", formatExtra(rec.Extra), false)
	}

	return entry
}

// unarchiveLogPost reopens the standing log post if it was archived. Required
// before any dispatch to it.
func (p *Pipeline) unarchiveLogPost(ctx context.Context) {
	post, err := p.client.FetchChannel(ctx, p.logPostID)
	if err != nil {
		logger.Errorf("Failed to fetch log post %s: %v", p.logPostID, err)
		return
	}
	if !post.Archived {
		return
	}

	unarchived := false
	if err := p.client.EditChannel(ctx, p.logPostID, platform.ChannelEdit{Archived: &unarchived}); err != nil {
		logger.Errorf("Failed to unarchive log post %s: %v", p.logPostID, err)
	}
}

// formatExtra renders the structured extra fields with stable key ordering.
func formatExtra(extra map[string]any) string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		title := titleCase(k)
		switch v := extra[k].(type) {
		case []map[string]string:
			lines = append(lines, fmt.Sprintf("**%s**:", title))
			for _, item := range v {
				itemKeys := make([]string, 0, len(item))
				for ik := range item {
					itemKeys = append(itemKeys, ik)
				}
				sort.Strings(itemKeys)
				for _, ik := range itemKeys {
					lines = append(lines, fmt.Sprintf("• %s: %s", ik, item[ik]))
				}
			}
		default:
			lines = append(lines, fmt.Sprintf("**%s**: %v", title, v))
		}
	}
	return strings.Join(lines, "\n")
}

func titleCase(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
