package rotation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-warden/internal/models"
	"forum-warden/internal/platform"
)

type fakeStats struct {
	stats    map[string]models.PostStats
	featured map[string]string
}

func (f *fakeStats) StatsSnapshot() map[string]models.PostStats {
	snapshot := make(map[string]models.PostStats, len(f.stats))
	for k, v := range f.stats {
		snapshot[k] = v
	}
	return snapshot
}

func (f *fakeStats) FeaturedPost(forumID string) (string, bool) {
	postID, ok := f.featured[forumID]
	return postID, ok
}

func (f *fakeStats) SetFeatured(forumID, postID string) error {
	if f.featured == nil {
		f.featured = map[string]string{}
	}
	f.featured[forumID] = postID
	return nil
}

type fakeLister struct {
	threads []*platform.Channel
}

func (f *fakeLister) ListActiveThreads(ctx context.Context, guildID string) ([]*platform.Channel, error) {
	return f.threads, nil
}

type fakeLabeler struct {
	added   []string
	removed []string
}

func (f *fakeLabeler) AddLabel(ctx context.Context, postID string) error {
	f.added = append(f.added, postID)
	return nil
}

func (f *fakeLabeler) RemoveLabel(ctx context.Context, postID string) error {
	f.removed = append(f.removed, postID)
	return nil
}

func newTestController(stats *fakeStats, lister *fakeLister, labeler *fakeLabeler, forums ...string) *Controller {
	return NewController(stats, lister, labeler, "guild", forums, 200, 24*time.Hour)
}

func activeStats(counts map[string]int, lastActivity time.Time) map[string]models.PostStats {
	stats := make(map[string]models.PostStats, len(counts))
	for postID, count := range counts {
		stats[postID] = models.PostStats{MessageCount: count, LastActivity: lastActivity}
	}
	return stats
}

func TestAdjustThresholdsAveragesMessageCounts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stats := &fakeStats{stats: activeStats(map[string]int{"p1": 40, "p2": 60}, now)}

	c := newTestController(stats, &fakeLister{}, &fakeLabeler{})
	c.now = func() time.Time { return now }
	// Two active posts is below the low-activity breakpoint, so the interval
	// must not be affected by the decay adjustment here.
	c.lastForcedAdjustment = now

	c.AdjustThresholds()

	assert.Equal(t, 50, c.Threshold())
	assert.Equal(t, slowInterval, c.Interval())
}

func TestAdjustThresholdsHighActivitySpeedsRotation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	counts := make(map[string]int, 150)
	for i := 0; i < 150; i++ {
		counts[postName(i)] = 100
	}
	stats := &fakeStats{stats: activeStats(counts, now)}

	c := newTestController(stats, &fakeLister{}, &fakeLabeler{})
	c.now = func() time.Time { return now }

	c.AdjustThresholds()

	assert.Equal(t, fastInterval, c.Interval())
	assert.Equal(t, 100, c.Threshold())
}

func TestAdjustThresholdsLowActivitySlowsRotation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stats := &fakeStats{stats: activeStats(map[string]int{
		"p1": 80, "p2": 80, "p3": 80, "p4": 80, "p5": 80,
	}, now)}

	c := newTestController(stats, &fakeLister{}, &fakeLabeler{})
	c.now = func() time.Time { return now }

	c.AdjustThresholds()

	assert.Equal(t, slowInterval, c.Interval())
}

func TestAdjustThresholdsDecayRecovery(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	counts := make(map[string]int, 20)
	for i := 0; i < 20; i++ {
		counts[postName(i)] = 30
	}
	stats := &fakeStats{stats: activeStats(counts, now)}

	c := newTestController(stats, &fakeLister{}, &fakeLabeler{})
	c.now = func() time.Time { return now }

	// The seed places the last forced adjustment past the cooldown, so a low
	// average halves the threshold and forces the fast interval.
	c.AdjustThresholds()

	assert.Equal(t, fastInterval, c.Interval())
	assert.Equal(t, 15, c.Threshold())
	assert.Equal(t, now, c.lastForcedAdjustment)

	// Within the cooldown the same stats no longer force anything.
	c.AdjustThresholds()
	assert.Equal(t, defaultInterval, c.Interval())
	assert.Equal(t, 30, c.Threshold())
}

func TestAdjustThresholdsHalvingHasFloor(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stats := &fakeStats{stats: activeStats(map[string]int{"p1": 4}, now)}

	c := newTestController(stats, &fakeLister{}, &fakeLabeler{})
	c.now = func() time.Time { return now }

	c.AdjustThresholds()

	assert.Equal(t, minimumThreshold, c.Threshold())
}

func TestAdjustThresholdsNoPostsIsNoop(t *testing.T) {
	c := newTestController(&fakeStats{}, &fakeLister{}, &fakeLabeler{})

	c.AdjustThresholds()

	assert.Equal(t, 200, c.Threshold())
	assert.Equal(t, 24*time.Hour, c.Interval())
}

func TestUpdateFeaturedRotationMovesPointerAndLabels(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stats := &fakeStats{
		stats:    activeStats(map[string]int{"old": 10, "new": 25, "elsewhere": 99}, now),
		featured: map[string]string{"forum": "old"},
	}
	lister := &fakeLister{threads: []*platform.Channel{
		{ID: "old", ParentID: "forum", Type: platform.ChannelTypeForumPost},
		{ID: "new", ParentID: "forum", Type: platform.ChannelTypeForumPost},
		{ID: "elsewhere", ParentID: "other-forum", Type: platform.ChannelTypeForumPost},
	}}
	labeler := &fakeLabeler{}

	c := newTestController(stats, lister, labeler, "forum")

	require.NoError(t, c.UpdateFeaturedRotation(context.Background()))

	assert.Equal(t, "new", stats.featured["forum"])
	assert.Equal(t, []string{"new"}, labeler.added)
	assert.Equal(t, []string{"old"}, labeler.removed)
}

func TestUpdateFeaturedRotationUnchangedTopIsNoop(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stats := &fakeStats{
		stats:    activeStats(map[string]int{"top": 25}, now),
		featured: map[string]string{"forum": "top"},
	}
	lister := &fakeLister{threads: []*platform.Channel{
		{ID: "top", ParentID: "forum", Type: platform.ChannelTypeForumPost},
	}}
	labeler := &fakeLabeler{}

	c := newTestController(stats, lister, labeler, "forum")

	require.NoError(t, c.UpdateFeaturedRotation(context.Background()))

	assert.Empty(t, labeler.added)
	assert.Empty(t, labeler.removed)
}

func TestUpdateFeaturedRotationFirstFeatureHasNoRemoval(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stats := &fakeStats{stats: activeStats(map[string]int{"first": 5}, now)}
	lister := &fakeLister{threads: []*platform.Channel{
		{ID: "first", ParentID: "forum", Type: platform.ChannelTypeForumPost},
	}}
	labeler := &fakeLabeler{}

	c := newTestController(stats, lister, labeler, "forum")

	require.NoError(t, c.UpdateFeaturedRotation(context.Background()))

	assert.Equal(t, []string{"first"}, labeler.added)
	assert.Empty(t, labeler.removed)
}

type panickyStats struct {
	fakeStats
	panics int
}

func (p *panickyStats) StatsSnapshot() map[string]models.PostStats {
	if p.panics > 0 {
		p.panics--
		panic("stats backend exploded")
	}
	return p.fakeStats.StatsSnapshot()
}

func TestTickContainsPanics(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stats := &panickyStats{
		fakeStats: fakeStats{stats: activeStats(map[string]int{"p1": 40, "p2": 60}, now)},
		panics:    1,
	}

	c := NewController(stats, &fakeLister{}, &fakeLabeler{}, "guild", nil, 200, 24*time.Hour)
	c.now = func() time.Time { return now }
	c.lastForcedAdjustment = now

	// The first tick panics inside the stats read; the loop must survive it
	// and the next tick must work normally.
	require.NotPanics(t, func() { c.tick(context.Background()) })
	assert.Equal(t, 200, c.Threshold())

	c.tick(context.Background())
	assert.Equal(t, 50, c.Threshold())
}

func postName(i int) string {
	return fmt.Sprintf("post-%d", i)
}
