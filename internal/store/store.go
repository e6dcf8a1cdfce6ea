package store

import (
	"sort"
	"sync"
	"time"

	"forum-warden/internal/models"
)

// Paths locates the four collection files on disk.
type Paths struct {
	Bans        string
	Permissions string
	Stats       string
	Featured    string
}

// Store owns the four durable moderation collections and their persistence.
//
// mutationMu serializes every mutator across both the in-memory update and the
// synchronous persist, so a concurrent mutator never interleaves with a
// half-written file. stateMu guards the maps themselves; readers take it only
// for the in-memory lookup and never wait on file I/O.
type Store struct {
	mutationMu sync.Mutex
	stateMu    sync.RWMutex

	bans        map[string]map[string]map[string]struct{}
	permissions map[string]map[string]struct{}
	stats       map[string]*models.PostStats
	featured    map[string]string

	paths Paths
	now   func() time.Time
}

func New(paths Paths) *Store {
	return &Store{
		bans:        make(map[string]map[string]map[string]struct{}),
		permissions: make(map[string]map[string]struct{}),
		stats:       make(map[string]*models.PostStats),
		featured:    make(map[string]string),
		paths:       paths,
		now:         time.Now,
	}
}

// BanEntry is one flattened ban for listing surfaces.
type BanEntry struct {
	ChannelID string
	PostID    string
	UserID    string
}

// PermissionEntry is one flattened delegated grant.
type PermissionEntry struct {
	PostID string
	UserID string
}

// IsBanned is a pure in-memory lookup; it performs no I/O.
func (s *Store) IsBanned(channelID, postID, userID string) bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	_, ok := s.bans[channelID][postID][userID]
	return ok
}

// HasPermission reports whether the user holds a delegated grant for the post.
func (s *Store) HasPermission(postID, userID string) bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	_, ok := s.permissions[postID][userID]
	return ok
}

// StatsFor returns a copy of the post's stats, if any are tracked.
func (s *Store) StatsFor(postID string) (models.PostStats, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	st, ok := s.stats[postID]
	if !ok {
		return models.PostStats{}, false
	}
	return *st, true
}

// FeaturedPost returns the post currently featured in the forum, if any.
func (s *Store) FeaturedPost(forumID string) (string, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	postID, ok := s.featured[forumID]
	return postID, ok
}

// StatsSnapshot returns a point-in-time copy of all post stats.
func (s *Store) StatsSnapshot() map[string]models.PostStats {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	snapshot := make(map[string]models.PostStats, len(s.stats))
	for postID, st := range s.stats {
		snapshot[postID] = *st
	}
	return snapshot
}

// FeaturedSnapshot returns a copy of the featured-pointer collection.
func (s *Store) FeaturedSnapshot() map[string]string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	snapshot := make(map[string]string, len(s.featured))
	for forumID, postID := range s.featured {
		snapshot[forumID] = postID
	}
	return snapshot
}

// BannedEntries returns a sorted flattened view of every ban.
func (s *Store) BannedEntries() []BanEntry {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	var entries []BanEntry
	for channelID, posts := range s.bans {
		for postID, users := range posts {
			for userID := range users {
				entries = append(entries, BanEntry{ChannelID: channelID, PostID: postID, UserID: userID})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ChannelID != entries[j].ChannelID {
			return entries[i].ChannelID < entries[j].ChannelID
		}
		if entries[i].PostID != entries[j].PostID {
			return entries[i].PostID < entries[j].PostID
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

// PermissionEntries returns a sorted flattened view of every grant.
func (s *Store) PermissionEntries() []PermissionEntry {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	var entries []PermissionEntry
	for postID, users := range s.permissions {
		for userID := range users {
			entries = append(entries, PermissionEntry{PostID: postID, UserID: userID})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PostID != entries[j].PostID {
			return entries[i].PostID < entries[j].PostID
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

// Ban records the user as banned in the post and persists the collection.
func (s *Store) Ban(channelID, postID, userID string) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	s.stateMu.Lock()
	posts, ok := s.bans[channelID]
	if !ok {
		posts = make(map[string]map[string]struct{})
		s.bans[channelID] = posts
	}
	users, ok := posts[postID]
	if !ok {
		users = make(map[string]struct{})
		posts[postID] = users
	}
	users[userID] = struct{}{}
	s.stateMu.Unlock()

	return s.saveBans()
}

// Unban removes the ban and collapses empty nested maps, then persists.
func (s *Store) Unban(channelID, postID, userID string) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	s.stateMu.Lock()
	if users, ok := s.bans[channelID][postID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(s.bans[channelID], postID)
		}
		if len(s.bans[channelID]) == 0 {
			delete(s.bans, channelID)
		}
	}
	s.stateMu.Unlock()

	return s.saveBans()
}

// GrantPermission adds a delegated moderation grant and persists.
func (s *Store) GrantPermission(postID, userID string) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	s.stateMu.Lock()
	users, ok := s.permissions[postID]
	if !ok {
		users = make(map[string]struct{})
		s.permissions[postID] = users
	}
	users[userID] = struct{}{}
	s.stateMu.Unlock()

	return s.savePermissions()
}

// RevokePermission removes a grant, collapsing an emptied post entry.
func (s *Store) RevokePermission(postID, userID string) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	s.stateMu.Lock()
	if users, ok := s.permissions[postID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(s.permissions, postID)
		}
	}
	s.stateMu.Unlock()

	return s.savePermissions()
}

// RecordMessage increments the post's message count, stamps its last activity
// and persists the stats collection.
func (s *Store) RecordMessage(postID string) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	s.stateMu.Lock()
	st, ok := s.stats[postID]
	if !ok {
		st = &models.PostStats{}
		s.stats[postID] = st
	}
	st.MessageCount++
	st.LastActivity = s.now().UTC()
	s.stateMu.Unlock()

	return s.saveStats()
}

// ResetStats zeroes the post's message count. The count is otherwise
// monotonically non-decreasing.
func (s *Store) ResetStats(postID string) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	s.stateMu.Lock()
	if st, ok := s.stats[postID]; ok {
		st.MessageCount = 0
		st.LastActivity = s.now().UTC()
	}
	s.stateMu.Unlock()

	return s.saveStats()
}

// SetFeatured overwrites the forum's featured pointer and persists.
func (s *Store) SetFeatured(forumID, postID string) error {
	s.mutationMu.Lock()
	defer s.mutationMu.Unlock()

	s.stateMu.Lock()
	s.featured[forumID] = postID
	s.stateMu.Unlock()

	return s.saveFeatured()
}
