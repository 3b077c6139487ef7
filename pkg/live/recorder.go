package live

import (
	"context"

	"github.com/junaikey/livecache/pkg/logger"
	"github.com/junaikey/livecache/pkg/models"
)

// ActionRecorder is the authority sink told about successful mutations.
type ActionRecorder interface {
	Record(ctx context.Context, rec models.ActionRecord) error
}

// LogRecorder writes action records to a logger.
type LogRecorder struct {
	Logger logger.Logger
}

func (r LogRecorder) Record(_ context.Context, rec models.ActionRecord) error {
	r.Logger.Info("Action recorded",
		"type", rec.Type,
		"user_id", rec.UserID,
		"page", rec.Context.Page,
		"details", rec.Details,
		"timestamp", rec.Timestamp,
	)
	return nil
}
