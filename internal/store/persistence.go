package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"forum-warden/internal/logger"
	"forum-warden/internal/models"
)

// Wire formats. One JSON document per collection, human-diffable: map keys are
// emitted sorted by encoding/json and user sets are serialized as sorted lists.

type statsRecord struct {
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

// LoadAll bootstraps every collection. Individual loads self-heal missing
// files and keep prior state on malformed content.
func (s *Store) LoadAll() error {
	if err := s.LoadBans(); err != nil {
		return err
	}
	if err := s.LoadPermissions(); err != nil {
		return err
	}
	if err := s.LoadStats(); err != nil {
		return err
	}
	return s.LoadFeatured()
}

// LoadBans replaces the ban collection from disk.
func (s *Store) LoadBans() error {
	raw, err := s.readCollection(s.paths.Bans, s.saveBans)
	if err != nil || raw == nil {
		return err
	}

	var decoded map[string]map[string][]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.Errorf("Error decoding banned users data from %s: %v", s.paths.Bans, err)
		return nil
	}

	bans := make(map[string]map[string]map[string]struct{}, len(decoded))
	for channelID, posts := range decoded {
		channelBans := make(map[string]map[string]struct{}, len(posts))
		for postID, userList := range posts {
			users := make(map[string]struct{}, len(userList))
			for _, userID := range userList {
				users[userID] = struct{}{}
			}
			channelBans[postID] = users
		}
		bans[channelID] = channelBans
	}

	s.stateMu.Lock()
	s.bans = bans
	s.stateMu.Unlock()
	return nil
}

// LoadPermissions replaces the delegated-permission collection from disk.
func (s *Store) LoadPermissions() error {
	raw, err := s.readCollection(s.paths.Permissions, s.savePermissions)
	if err != nil || raw == nil {
		return err
	}

	var decoded map[string][]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.Errorf("Error decoding thread permissions from %s: %v", s.paths.Permissions, err)
		return nil
	}

	permissions := make(map[string]map[string]struct{}, len(decoded))
	for postID, userList := range decoded {
		users := make(map[string]struct{}, len(userList))
		for _, userID := range userList {
			users[userID] = struct{}{}
		}
		permissions[postID] = users
	}

	s.stateMu.Lock()
	s.permissions = permissions
	s.stateMu.Unlock()
	return nil
}

// LoadStats replaces the post-stats collection from disk.
func (s *Store) LoadStats() error {
	raw, err := s.readCollection(s.paths.Stats, s.saveStats)
	if err != nil || raw == nil {
		return err
	}

	var decoded map[string]statsRecord
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.Errorf("Error decoding post stats from %s: %v", s.paths.Stats, err)
		return nil
	}

	stats := make(map[string]*models.PostStats, len(decoded))
	for postID, rec := range decoded {
		stats[postID] = &models.PostStats{
			MessageCount: rec.MessageCount,
			LastActivity: rec.LastActivity,
		}
	}

	s.stateMu.Lock()
	s.stats = stats
	s.stateMu.Unlock()
	return nil
}

// LoadFeatured replaces the featured-pointer collection from disk.
func (s *Store) LoadFeatured() error {
	raw, err := s.readCollection(s.paths.Featured, s.saveFeatured)
	if err != nil || raw == nil {
		return err
	}

	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.Errorf("Error decoding featured posts from %s: %v", s.paths.Featured, err)
		return nil
	}

	s.stateMu.Lock()
	s.featured = decoded
	s.stateMu.Unlock()
	return nil
}

// readCollection reads one collection file. A missing file is self-healing:
// the empty in-memory collection is persisted immediately and nil content is
// returned. Empty content is treated as an empty collection.
func (s *Store) readCollection(path string, save func() error) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warningf("Collection file not found: %s. Creating a new one.", path)
			return nil, save()
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}
	return raw, nil
}

func (s *Store) saveBans() error {
	s.stateMu.RLock()
	serializable := make(map[string]map[string][]string, len(s.bans))
	for channelID, posts := range s.bans {
		channelBans := make(map[string][]string, len(posts))
		for postID, users := range posts {
			channelBans[postID] = sortedKeys(users)
		}
		serializable[channelID] = channelBans
	}
	s.stateMu.RUnlock()

	return writeCollection(s.paths.Bans, serializable)
}

func (s *Store) savePermissions() error {
	s.stateMu.RLock()
	serializable := make(map[string][]string, len(s.permissions))
	for postID, users := range s.permissions {
		serializable[postID] = sortedKeys(users)
	}
	s.stateMu.RUnlock()

	return writeCollection(s.paths.Permissions, serializable)
}

func (s *Store) saveStats() error {
	s.stateMu.RLock()
	serializable := make(map[string]statsRecord, len(s.stats))
	for postID, st := range s.stats {
		serializable[postID] = statsRecord{
			MessageCount: st.MessageCount,
			LastActivity: st.LastActivity,
		}
	}
	s.stateMu.RUnlock()

	return writeCollection(s.paths.Stats, serializable)
}

func (s *Store) saveFeatured() error {
	s.stateMu.RLock()
	serializable := make(map[string]string, len(s.featured))
	for forumID, postID := range s.featured {
		serializable[forumID] = postID
	}
	s.stateMu.RUnlock()

	return writeCollection(s.paths.Featured, serializable)
}

func writeCollection(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
