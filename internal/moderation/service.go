package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"forum-warden/internal/cache"
	"forum-warden/internal/config"
	"forum-warden/internal/logger"
	"forum-warden/internal/models"
	"forum-warden/internal/platform"
	"forum-warden/internal/storage"
	"forum-warden/internal/store"
)

// Recorder consumes one ActionRecord per completed operation.
type Recorder interface {
	Record(ctx context.Context, rec *models.ActionRecord)
}

// Request carries the context of one moderation operation: who acts, where,
// on whom, and why.
type Request struct {
	Actor   platform.Member
	Channel platform.Channel
	Target  *platform.Member
	Message *platform.Message
	Reason  string
}

// Service executes moderation operations against the store and the platform.
// It is explicitly constructed and passed by handle; it keeps no package
// state.
type Service struct {
	store     *store.Store
	cache     *cache.BanCache
	audit     Recorder
	client    platform.Client
	cfg       *config.Config
	deletions *storage.DeletionRepository

	ban               Operation
	unban             Operation
	sharePermissions  Operation
	revokePermissions Operation
	lock              Operation
	unlock            Operation
	deleteMessage     Operation
	pinMessage        Operation
	unpinMessage      Operation
}

// NewService wires the service. deletions may be nil when database support is
// disabled.
func NewService(st *store.Store, bc *cache.BanCache, audit Recorder, client platform.Client, cfg *config.Config, deletions *storage.DeletionRepository) *Service {
	s := &Service{
		store:     st,
		cache:     bc,
		audit:     audit,
		client:    client,
		cfg:       cfg,
		deletions: deletions,
	}

	// Every operation is composed through the audit middleware so the
	// record-on-exit contract holds on both success and failure paths.
	s.ban = s.withAudit(models.ActionBan, s.doBan)
	s.unban = s.withAudit(models.ActionUnban, s.doUnban)
	s.sharePermissions = s.withAudit(models.ActionSharePermissions, s.doSharePermissions)
	s.revokePermissions = s.withAudit(models.ActionRevokePermissions, s.doRevokePermissions)
	s.lock = s.withAudit(models.ActionLock, s.doLock)
	s.unlock = s.withAudit(models.ActionUnlock, s.doUnlock)
	s.deleteMessage = s.withAudit(models.ActionDelete, s.doDeleteMessage)
	s.pinMessage = s.withAudit(models.ActionPin, s.doPinMessage)
	s.unpinMessage = s.withAudit(models.ActionUnpin, s.doUnpinMessage)

	return s
}

func (s *Service) Ban(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.ban(ctx, req)
}

func (s *Service) Unban(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.unban(ctx, req)
}

func (s *Service) SharePermissions(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.sharePermissions(ctx, req)
}

func (s *Service) RevokePermissions(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.revokePermissions(ctx, req)
}

func (s *Service) Lock(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.lock(ctx, req)
}

func (s *Service) Unlock(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.unlock(ctx, req)
}

func (s *Service) DeleteMessage(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.deleteMessage(ctx, req)
}

func (s *Service) PinMessage(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.pinMessage(ctx, req)
}

func (s *Service) UnpinMessage(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.unpinMessage(ctx, req)
}

// IsBanned answers the hot-path ban question through the decision cache.
func (s *Service) IsBanned(channelID, postID, userID string) bool {
	return s.cache.Lookup(channelID, postID, userID)
}

// Check methods

// validateChannel reports whether the request targets a thread inside a
// moderated forum.
func (s *Service) validateChannel(ch *platform.Channel) bool {
	if !ch.IsThread() {
		return false
	}
	for _, allowed := range s.cfg.Guild.AllowedChannels {
		if ch.ParentID == allowed {
			return true
		}
	}
	return false
}

// canManagePost reports whether the user owns the thread, holds a delegated
// grant for it, or carries a role mapped to its parent forum.
func (s *Service) canManagePost(thread *platform.Channel, user *platform.Member) bool {
	if thread.OwnerID == user.ID {
		return true
	}
	if s.store.HasPermission(thread.ID, user.ID) {
		return true
	}
	return s.hasRolePermission(user, thread.ParentID)
}

func (s *Service) hasRolePermission(user *platform.Member, parentID string) bool {
	for _, roleID := range user.RoleIDs {
		for _, channelID := range s.cfg.Guild.RoleChannelPermissions[roleID] {
			if channelID == parentID {
				return true
			}
		}
	}
	return false
}

// Operations

func (s *Service) doBan(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.setBanState(ctx, req, models.ActionBan)
}

func (s *Service) doUnban(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.setBanState(ctx, req, models.ActionUnban)
}

// setBanState mutates the ban collection, invalidates the cached verdict and
// returns the audit record. The sequence mutate -> invalidate -> audit is
// strictly ordered within one operation.
func (s *Service) setBanState(ctx context.Context, req Request, action models.ActionType) (*models.ActionRecord, error) {
	if !s.validateChannel(&req.Channel) {
		return nil, ErrInvalidChannel
	}
	if req.Target == nil {
		return nil, fmt.Errorf("%s requires a target user", action)
	}
	if !s.canManagePost(&req.Channel, &req.Actor) {
		return nil, ErrPermissionDenied
	}

	channelID, postID, userID := req.Channel.ParentID, req.Channel.ID, req.Target.ID

	var err error
	var actionName string
	if action == models.ActionBan {
		err = s.store.Ban(channelID, postID, userID)
		actionName = "banned"
	} else {
		err = s.store.Unban(channelID, postID, userID)
		actionName = "unbanned"
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist ban state: %w", err)
	}

	s.cache.Invalidate(channelID, postID, userID)

	reason := req.Reason
	if reason == "" {
		reason = capitalize(actionName) + " by " + req.Actor.Mention()
	}

	return &models.ActionRecord{
		Action:   action,
		Reason:   reason,
		PostName: req.Channel.Name,
		Actor:    req.Actor,
		Target:   req.Target,
		Result:   models.ResultSuccessful,
		Channel:  &req.Channel,
		Extra: map[string]any{
			"action_type":      capitalize(actionName),
			"affected_user":    req.Target.Username,
			"affected_user_id": req.Target.ID,
		},
	}, nil
}

func (s *Service) doSharePermissions(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.setPermissionState(ctx, req, models.ActionSharePermissions)
}

func (s *Service) doRevokePermissions(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.setPermissionState(ctx, req, models.ActionRevokePermissions)
}

func (s *Service) setPermissionState(ctx context.Context, req Request, action models.ActionType) (*models.ActionRecord, error) {
	if !s.validateChannel(&req.Channel) {
		return nil, ErrInvalidChannel
	}
	if req.Target == nil {
		return nil, fmt.Errorf("%s requires a target user", action)
	}
	if !s.canManagePost(&req.Channel, &req.Actor) {
		return nil, ErrPermissionDenied
	}

	postID, userID := req.Channel.ID, req.Target.ID

	var err error
	var actionName string
	if action == models.ActionSharePermissions {
		err = s.store.GrantPermission(postID, userID)
		actionName = "shared"
	} else {
		err = s.store.RevokePermission(postID, userID)
		actionName = "revoked"
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist permissions: %w", err)
	}

	return &models.ActionRecord{
		Action:   action,
		Reason:   fmt.Sprintf("Permissions %s by %s", actionName, req.Actor.Mention()),
		PostName: req.Channel.Name,
		Actor:    req.Actor,
		Target:   req.Target,
		Result:   models.ResultSuccessful,
		Channel:  &req.Channel,
		Extra: map[string]any{
			"action_type":      capitalize(actionName) + " permissions",
			"affected_user":    req.Target.Username,
			"affected_user_id": req.Target.ID,
		},
	}, nil
}

func (s *Service) doLock(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.setLockState(ctx, req, models.ActionLock)
}

func (s *Service) doUnlock(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.setLockState(ctx, req, models.ActionUnlock)
}

// setLockState toggles the thread lock through the platform, bounded by the
// configured timeout. A timeout is surfaced to the caller without retry.
func (s *Service) setLockState(ctx context.Context, req Request, action models.ActionType) (*models.ActionRecord, error) {
	if !s.validateChannel(&req.Channel) {
		return nil, ErrInvalidChannel
	}

	desired := action == models.ActionLock
	if req.Channel.Archived {
		return nil, fmt.Errorf("thread %s is archived and cannot be changed", req.Channel.ID)
	}
	if req.Channel.Locked == desired {
		return nil, fmt.Errorf("thread %s is already in the requested state", req.Channel.ID)
	}
	if !s.hasRolePermission(&req.Actor, req.Channel.ParentID) {
		return nil, ErrPermissionDenied
	}

	editCtx, cancel := context.WithTimeout(ctx, s.cfg.Moderation.LockTimeout)
	defer cancel()

	if err := s.client.EditChannel(editCtx, req.Channel.ID, platform.ChannelEdit{Locked: &desired}); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warningf("Timeout while changing lock state of thread %s", req.Channel.ID)
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to change lock state of thread %s: %w", req.Channel.ID, err)
	}

	previous, next := "Unlocked", "Locked"
	if action == models.ActionUnlock {
		previous, next = "Locked", "Unlocked"
	}

	return &models.ActionRecord{
		Action:   action,
		Reason:   req.Reason,
		PostName: req.Channel.Name,
		Actor:    req.Actor,
		Result:   models.ResultSuccessful,
		Channel:  &req.Channel,
		Extra: map[string]any{
			"previous_state": previous,
			"new_state":      next,
		},
	}, nil
}

// canManageMessage lets authors manage their own messages; everything else
// requires post-management rights.
func (s *Service) canManageMessage(thread *platform.Channel, user *platform.Member, msg *platform.Message) bool {
	if msg.Author.ID == user.ID {
		return true
	}
	return s.canManagePost(thread, user)
}

func (s *Service) doDeleteMessage(ctx context.Context, req Request) (*models.ActionRecord, error) {
	if !s.validateChannel(&req.Channel) {
		return nil, ErrInvalidChannel
	}
	if req.Message == nil {
		return nil, fmt.Errorf("delete requires a message")
	}
	if !s.canManageMessage(&req.Channel, &req.Actor, req.Message) {
		return nil, ErrPermissionDenied
	}

	if err := s.client.DeleteMessage(ctx, req.Channel.ID, req.Message.ID); err != nil {
		return nil, fmt.Errorf("failed to delete message %s: %w", req.Message.ID, err)
	}

	target := &platform.Member{User: req.Message.Author}
	return &models.ActionRecord{
		Action:   models.ActionDelete,
		Reason:   "User-initiated message deletion by " + req.Actor.Mention(),
		PostName: req.Channel.Name,
		Actor:    req.Actor,
		Target:   target,
		Result:   models.ResultSuccessful,
		Channel:  &req.Channel,
		Extra: map[string]any{
			"deleted_message_id":          req.Message.ID,
			"deleted_message_content":     truncate(req.Message.Content, 1000),
			"deleted_message_attachments": fmt.Sprintf("%v", req.Message.AttachmentURLs),
		},
	}, nil
}

func (s *Service) doPinMessage(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.setPinState(ctx, req, models.ActionPin)
}

func (s *Service) doUnpinMessage(ctx context.Context, req Request) (*models.ActionRecord, error) {
	return s.setPinState(ctx, req, models.ActionUnpin)
}

func (s *Service) setPinState(ctx context.Context, req Request, action models.ActionType) (*models.ActionRecord, error) {
	if !s.validateChannel(&req.Channel) {
		return nil, ErrInvalidChannel
	}
	if req.Message == nil {
		return nil, fmt.Errorf("%s requires a message", action)
	}
	if !s.canManageMessage(&req.Channel, &req.Actor, req.Message) {
		return nil, ErrPermissionDenied
	}

	var err error
	var actionName string
	if action == models.ActionPin {
		err = s.client.PinMessage(ctx, req.Channel.ID, req.Message.ID)
		actionName = "pinned"
	} else {
		err = s.client.UnpinMessage(ctx, req.Channel.ID, req.Message.ID)
		actionName = "unpinned"
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s message %s: %w", action, req.Message.ID, err)
	}

	target := &platform.Member{User: req.Message.Author}
	return &models.ActionRecord{
		Action:   action,
		Reason:   fmt.Sprintf("User-initiated message %s by %s", actionName, req.Actor.Mention()),
		PostName: req.Channel.Name,
		Actor:    req.Actor,
		Target:   target,
		Result:   models.ResultSuccessful,
		Channel:  &req.Channel,
		Extra: map[string]any{
			actionName + "_message_id":      req.Message.ID,
			actionName + "_message_content": truncate(req.Message.Content, 1000),
		},
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// truncate caps s at n bytes without splitting a rune.
func truncate(s string, n int) string {
	if s == "" {
		return "N/A"
	}
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
