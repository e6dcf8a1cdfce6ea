package moderation

import (
	"context"
	"errors"

	"forum-warden/internal/models"
	"forum-warden/internal/platform"
)

// Operation is one moderation operation. A nil record with a nil error means
// the operation decided to do nothing.
type Operation func(ctx context.Context, req Request) (*models.ActionRecord, error)

// withAudit composes an operation with the audit-on-exit contract: whatever
// record the operation produced is dispatched before the call returns, and an
// unexpected failure still produces a record with result "failed" and the
// error text as the reason. Classified rejections (permission denied, invalid
// channel, timeout, vanished entities) are surfaced to the caller without an
// audit record.
func (s *Service) withAudit(action models.ActionType, op Operation) Operation {
	return func(ctx context.Context, req Request) (rec *models.ActionRecord, err error) {
		defer func() {
			if rec != nil {
				s.audit.Record(ctx, rec)
			}
		}()

		rec, err = op(ctx, req)
		if err != nil && rec == nil && !isClassified(err) {
			rec = &models.ActionRecord{
				Action:   action,
				Reason:   "Error: " + err.Error(),
				PostName: req.Channel.Name,
				Actor:    req.Actor,
				Result:   models.ResultFailed,
				Channel:  &req.Channel,
			}
		}
		return rec, err
	}
}

func isClassified(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrInvalidChannel) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, platform.ErrNotFound)
}
