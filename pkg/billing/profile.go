package billing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"billingd/pkg/logger"
)

// ProjectStatus is the pure mapping from subscription status to the two
// derived profile flags. Only "active" yields an active profile and only
// "trialing" yields a trial profile; every other status, including
// unrecognized ones, clears both.
func ProjectStatus(status SubscriptionStatus) (active, onTrial, known bool) {
	switch status {
	case StatusActive:
		return true, false, true
	case StatusTrialing:
		return false, true, true
	case StatusPastDue, StatusPaused, StatusCanceled, StatusExpired:
		return false, false, true
	default:
		return false, false, false
	}
}

// ProfileProjector recomputes the derived profile flags from subscription
// status and writes them to the profile store.
type ProfileProjector struct {
	profiles ProfileStore
	log      *slog.Logger
}

func NewProfileProjector(profiles ProfileStore, log *slog.Logger) *ProfileProjector {
	return &ProfileProjector{profiles: profiles, log: log}
}

// Apply projects the given status onto the user's profile. A store failure
// is logged but never propagated: the subscription ledger is the source of
// truth and the profile is a read optimization that self-heals on the next
// transition.
func (p *ProfileProjector) Apply(ctx context.Context, userID uuid.UUID, status SubscriptionStatus) {
	active, onTrial, known := ProjectStatus(status)
	if !known {
		p.log.WarnContext(ctx, "Unrecognized subscription status, clearing profile flags",
			logger.UserID(userID), logger.Status(string(status)))
	}

	if err := p.profiles.UpdateSubscriptionFlags(ctx, userID, active, onTrial); err != nil {
		p.log.ErrorContext(ctx, "Failed to update profile projection",
			logger.UserID(userID), logger.Status(string(status)), logger.Error(err))
	}
}
