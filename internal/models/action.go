package models

import (
	"fmt"

	"forum-warden/internal/platform"
)

// ActionType is the closed set of moderation action kinds.
type ActionType int

const (
	ActionLock ActionType = iota
	ActionUnlock
	ActionBan
	ActionUnban
	ActionDelete
	ActionEdit
	ActionPin
	ActionUnpin
	ActionSharePermissions
	ActionRevokePermissions
)

func (a ActionType) String() string {
	switch a {
	case ActionLock:
		return "lock"
	case ActionUnlock:
		return "unlock"
	case ActionBan:
		return "ban"
	case ActionUnban:
		return "unban"
	case ActionDelete:
		return "delete"
	case ActionEdit:
		return "edit"
	case ActionPin:
		return "pin"
	case ActionUnpin:
		return "unpin"
	case ActionSharePermissions:
		return "share_permissions"
	case ActionRevokePermissions:
		return "revoke_permissions"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Title returns the capitalized display name for log entries.
func (a ActionType) Title() string {
	switch a {
	case ActionLock:
		return "Lock"
	case ActionUnlock:
		return "Unlock"
	case ActionBan:
		return "Ban"
	case ActionUnban:
		return "Unban"
	case ActionDelete:
		return "Delete"
	case ActionEdit:
		return "Edit"
	case ActionPin:
		return "Pin"
	case ActionUnpin:
		return "Unpin"
	case ActionSharePermissions:
		return "Share Permissions"
	case ActionRevokePermissions:
		return "Revoke Permissions"
	}
	return "Unknown"
}

// Embed palette shared by the audit pipeline.
const (
	ColorOff   = 0x5D5A58
	ColorFatal = 0xFF4343
	ColorError = 0xE81123
	ColorWarn  = 0xFFB900
	ColorInfo  = 0x0078D7
	ColorDebug = 0x00B7C3
	ColorTrace = 0x8E8CD8
	ColorAll   = 0x0063B1
)

// Color returns the embed color for the action kind.
func (a ActionType) Color() int {
	switch a {
	case ActionLock, ActionDelete, ActionRevokePermissions:
		return ColorWarn
	case ActionBan:
		return ColorError
	case ActionUnlock, ActionUnban, ActionEdit, ActionSharePermissions:
		return ColorInfo
	case ActionPin, ActionUnpin:
		return ColorDebug
	}
	return ColorDebug
}

// NotifiesTarget reports whether the action kind warrants a direct
// notification to the affected member. Edit, pin and unpin never do.
func (a ActionType) NotifiesTarget() bool {
	switch a {
	case ActionLock, ActionUnlock, ActionDelete, ActionBan, ActionUnban,
		ActionSharePermissions, ActionRevokePermissions:
		return true
	case ActionEdit, ActionPin, ActionUnpin:
		return false
	}
	return false
}

// ResultSuccessful is the default outcome of a completed operation.
const (
	ResultSuccessful = "successful"
	ResultFailed     = "failed"
)

// ActionRecord is the transient record of one moderation action, constructed
// by the operation and consumed once by the audit pipeline.
type ActionRecord struct {
	Action   ActionType
	Reason   string
	PostName string
	Actor    platform.Member
	Target   *platform.Member
	Result   string
	Channel  *platform.Channel
	Extra    map[string]any
}

func (r *ActionRecord) channelMention() string {
	if r.Channel != nil {
		return "<#" + r.Channel.ID + ">"
	}
	return "the thread"
}

// NotificationMessage renders the direct-notification text for the target.
func (r *ActionRecord) NotificationMessage() string {
	mention := r.channelMention()

	var msg string
	switch r.Action {
	case ActionLock:
		msg = fmt.Sprintf("%s has been locked.", mention)
	case ActionUnlock:
		msg = fmt.Sprintf("%s has been unlocked.", mention)
	case ActionDelete:
		msg = fmt.Sprintf("Your message has been deleted from %s.", mention)
	case ActionEdit:
		msg = fmt.Sprintf("A tag has been modified in %s.", mention)
	case ActionBan:
		msg = fmt.Sprintf("You have been banned from %s. If you continue to attempt to post, your comments will be deleted.", mention)
	case ActionUnban:
		msg = fmt.Sprintf("You have been unbanned from %s.", mention)
	case ActionSharePermissions:
		msg = fmt.Sprintf("You have been granted permissions to %s.", mention)
	case ActionRevokePermissions:
		msg = fmt.Sprintf("Your permissions for %s have been revoked.", mention)
	case ActionPin, ActionUnpin:
		msg = fmt.Sprintf("An action (%s) has been performed in %s.", r.Action, mention)
	default:
		msg = fmt.Sprintf("An action (%s) has been performed in %s.", r.Action, mention)
	}

	switch r.Action {
	case ActionBan, ActionUnban, ActionSharePermissions, ActionRevokePermissions:
		return msg
	default:
		return msg + " Reason: " + r.Reason
	}
}
