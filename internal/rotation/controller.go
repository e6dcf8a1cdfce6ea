package rotation

import (
	"context"
	"math"
	"sync"
	"time"

	"forum-warden/internal/crash"
	"forum-warden/internal/logger"
	"forum-warden/internal/models"
	"forum-warden/internal/platform"
)

// Policy breakpoints. Deliberately simple piecewise logic, not a smoothed
// control loop.
const (
	highActivityCount  = 100
	lowActivityCount   = 10
	activityFloor      = 50
	minimumThreshold   = 10
	adjustmentCooldown = 7 * 24 * time.Hour

	fastInterval    = 12 * time.Hour
	defaultInterval = 24 * time.Hour
	slowInterval    = 48 * time.Hour
)

// Stats is the slice of the store the controller reads and writes.
type Stats interface {
	StatsSnapshot() map[string]models.PostStats
	FeaturedPost(forumID string) (string, bool)
	SetFeatured(forumID, postID string) error
}

// ThreadLister enumerates the guild's active threads.
type ThreadLister interface {
	ListActiveThreads(ctx context.Context, guildID string) ([]*platform.Channel, error)
}

// Labeler re-tags posts when the featured pointer moves. The controller only
// decides which post should carry the label.
type Labeler interface {
	AddLabel(ctx context.Context, postID string) error
	RemoveLabel(ctx context.Context, postID string) error
}

// Controller periodically recomputes the activity threshold and rotation
// cadence from current stats and rotates the featured-post pointer of each
// monitored forum.
type Controller struct {
	stats   Stats
	threads ThreadLister
	labeler Labeler
	guildID string
	forums  []string

	mu                   sync.Mutex
	threshold            int
	interval             time.Duration
	lastForcedAdjustment time.Time

	now func() time.Time
}

func NewController(stats Stats, threads ThreadLister, labeler Labeler, guildID string, forums []string, thresholdSeed int, intervalSeed time.Duration) *Controller {
	now := time.Now
	return &Controller{
		stats:     stats,
		threads:   threads,
		labeler:   labeler,
		guildID:   guildID,
		forums:    forums,
		threshold: thresholdSeed,
		interval:  intervalSeed,
		// Start past the cooldown so a moribund community is eligible for the
		// decay-recovery adjustment on the first tick.
		lastForcedAdjustment: now().Add(-8 * 24 * time.Hour),
		now:                  now,
	}
}

// Threshold returns the current message-count threshold.
func (c *Controller) Threshold() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threshold
}

// Interval returns the current rotation interval.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Run drives the rotation loop until the context is cancelled. Each tick runs
// threshold adjustment then featured rotation; a failure of either never
// blocks the other, a panic is contained to its tick, and the timer always
// rearms.
func (c *Controller) Run(ctx context.Context) {
	for {
		c.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.Interval()):
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	defer crash.RecoverWithStack("rotation-tick")

	c.AdjustThresholds()
	if err := c.UpdateFeaturedRotation(ctx); err != nil {
		logger.Errorf("Error in rotating featured posts: %v", err)
	}
}

// AdjustThresholds recomputes the message-count threshold and rotation
// interval from the current stats. A no-op when no posts are tracked.
func (c *Controller) AdjustThresholds() {
	stats := c.stats.StatsSnapshot()
	if len(stats) == 0 {
		logger.Infof("No posts available to adjust thresholds.")
		return
	}

	currentTime := c.now().UTC()

	totalPosts := len(stats)
	totalMessages := 0
	oneDayAgo := currentTime.Add(-24 * time.Hour)
	recentActivity := 0
	for _, st := range stats {
		totalMessages += st.MessageCount
		if !st.LastActivity.Before(oneDayAgo) {
			recentActivity++
		}
	}
	averageMessages := float64(totalMessages) / float64(totalPosts)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.threshold = int(math.Floor(averageMessages))

	switch {
	case recentActivity > highActivityCount:
		c.interval = fastInterval
	case recentActivity < lowActivityCount:
		c.interval = slowInterval
	default:
		c.interval = defaultInterval
	}

	if averageMessages < activityFloor && currentTime.Sub(c.lastForcedAdjustment) > adjustmentCooldown {
		c.interval = fastInterval
		c.threshold = max(minimumThreshold, c.threshold/2)
		c.lastForcedAdjustment = currentTime

		logger.Infof("Standards not met for over a week. Adjusted thresholds: message_count_threshold=%d, rotation_interval=%v", c.threshold, c.interval)
	}

	logger.Infof("Threshold adjustment complete: message_count_threshold=%d, rotation_interval=%v", c.threshold, c.interval)
}

// UpdateFeaturedRotation recomputes the top post of every monitored forum and
// moves the featured pointer and label when it changed.
func (c *Controller) UpdateFeaturedRotation(ctx context.Context) error {
	for _, forumID := range c.forums {
		topPostID, err := c.topPostID(ctx, forumID)
		if err != nil {
			logger.Errorf("Error getting top post for forum %s: %v", forumID, err)
			continue
		}
		if topPostID == "" {
			continue
		}

		previous, _ := c.stats.FeaturedPost(forumID)
		if previous == topPostID {
			continue
		}

		if err := c.stats.SetFeatured(forumID, topPostID); err != nil {
			logger.Errorf("Error persisting featured post for forum %s: %v", forumID, err)
			continue
		}

		if err := c.labeler.AddLabel(ctx, topPostID); err != nil {
			logger.Errorf("Error labeling featured post %s: %v", topPostID, err)
		}
		if previous != "" {
			if err := c.labeler.RemoveLabel(ctx, previous); err != nil {
				logger.Errorf("Error unlabeling previous featured post %s: %v", previous, err)
			}
		}

		logger.Infof("Rotated featured post for forum %s to post %s", forumID, topPostID)
	}
	return nil
}

// topPostID returns the stats-tracked active thread of the forum with the
// highest message count. Ties are broken by iteration order, which is
// unspecified.
func (c *Controller) topPostID(ctx context.Context, forumID string) (string, error) {
	threads, err := c.threads.ListActiveThreads(ctx, c.guildID)
	if err != nil {
		return "", err
	}

	stats := c.stats.StatsSnapshot()

	topID := ""
	topCount := -1
	for _, thread := range threads {
		if thread.ParentID != forumID {
			continue
		}
		st, ok := stats[thread.ID]
		if !ok {
			continue
		}
		if st.MessageCount > topCount {
			topID = thread.ID
			topCount = st.MessageCount
		}
	}
	return topID, nil
}
