package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"forum-warden/internal/models"
)

type StoreSuite struct {
	suite.Suite
	store *Store
}

func (s *StoreSuite) SetupTest() {
	dir := s.T().TempDir()
	s.store = New(Paths{
		Bans:        filepath.Join(dir, "banned_users.json"),
		Permissions: filepath.Join(dir, "thread_permissions.json"),
		Stats:       filepath.Join(dir, "post_stats.json"),
		Featured:    filepath.Join(dir, "featured_posts.json"),
	})
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) TestBanReadYourWrites() {
	s.False(s.store.IsBanned("chan", "post", "user"))

	s.Require().NoError(s.store.Ban("chan", "post", "user"))
	s.True(s.store.IsBanned("chan", "post", "user"))

	s.Run("ban is scoped to the exact triple", func() {
		s.False(s.store.IsBanned("chan", "post", "other"))
		s.False(s.store.IsBanned("chan", "other", "user"))
		s.False(s.store.IsBanned("other", "post", "user"))
	})
}

func (s *StoreSuite) TestUnbanCollapsesEmptyMaps() {
	s.Require().NoError(s.store.Ban("chan", "post", "user1"))
	s.Require().NoError(s.store.Ban("chan", "post", "user2"))

	s.Require().NoError(s.store.Unban("chan", "post", "user1"))
	s.True(s.store.IsBanned("chan", "post", "user2"))

	s.Require().NoError(s.store.Unban("chan", "post", "user2"))
	s.False(s.store.IsBanned("chan", "post", "user2"))

	s.Run("no empty containers linger", func() {
		s.Empty(s.store.BannedEntries())
		s.store.stateMu.RLock()
		defer s.store.stateMu.RUnlock()
		s.Empty(s.store.bans)
	})
}

func (s *StoreSuite) TestUnbanUnknownUserIsNoop() {
	s.Require().NoError(s.store.Unban("chan", "post", "ghost"))
	s.Empty(s.store.BannedEntries())
}

func (s *StoreSuite) TestPermissionGrantAndRevoke() {
	s.False(s.store.HasPermission("post", "user"))

	s.Require().NoError(s.store.GrantPermission("post", "user"))
	s.True(s.store.HasPermission("post", "user"))
	s.False(s.store.HasPermission("other", "user"))

	s.Require().NoError(s.store.RevokePermission("post", "user"))
	s.False(s.store.HasPermission("post", "user"))
	s.Empty(s.store.PermissionEntries())
}

func (s *StoreSuite) TestRecordMessage() {
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return stamp }

	s.Require().NoError(s.store.RecordMessage("post"))
	s.Require().NoError(s.store.RecordMessage("post"))

	st, ok := s.store.StatsFor("post")
	s.Require().True(ok)
	s.Equal(2, st.MessageCount)
	s.Equal(stamp, st.LastActivity)
}

func (s *StoreSuite) TestResetStats() {
	s.Require().NoError(s.store.RecordMessage("post"))
	s.Require().NoError(s.store.ResetStats("post"))

	st, ok := s.store.StatsFor("post")
	s.Require().True(ok)
	s.Equal(0, st.MessageCount)

	// Resetting an untracked post must not create an entry.
	s.Require().NoError(s.store.ResetStats("ghost"))
	_, ok = s.store.StatsFor("ghost")
	s.False(ok)
}

func (s *StoreSuite) TestSetFeatured() {
	_, ok := s.store.FeaturedPost("forum")
	s.False(ok)

	s.Require().NoError(s.store.SetFeatured("forum", "post1"))
	postID, ok := s.store.FeaturedPost("forum")
	s.Require().True(ok)
	s.Equal("post1", postID)

	s.Require().NoError(s.store.SetFeatured("forum", "post2"))
	postID, _ = s.store.FeaturedPost("forum")
	s.Equal("post2", postID)
}

func (s *StoreSuite) TestSnapshotsAreCopies() {
	s.Require().NoError(s.store.RecordMessage("post"))
	s.Require().NoError(s.store.SetFeatured("forum", "post"))

	stats := s.store.StatsSnapshot()
	stats["post"] = models.PostStats{}
	featured := s.store.FeaturedSnapshot()
	featured["forum"] = "tampered"

	st, _ := s.store.StatsFor("post")
	s.Equal(1, st.MessageCount)
	postID, _ := s.store.FeaturedPost("forum")
	s.Equal("post", postID)
}

func (s *StoreSuite) TestBannedEntriesSorted() {
	s.Require().NoError(s.store.Ban("b", "p2", "u1"))
	s.Require().NoError(s.store.Ban("a", "p1", "u2"))
	s.Require().NoError(s.store.Ban("a", "p1", "u1"))

	entries := s.store.BannedEntries()
	s.Require().Len(entries, 3)
	s.Equal(BanEntry{ChannelID: "a", PostID: "p1", UserID: "u1"}, entries[0])
	s.Equal(BanEntry{ChannelID: "a", PostID: "p1", UserID: "u2"}, entries[1])
	s.Equal(BanEntry{ChannelID: "b", PostID: "p2", UserID: "u1"}, entries[2])
}
