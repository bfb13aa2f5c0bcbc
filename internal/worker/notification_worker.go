package worker

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/servicedesk/internal/service"
)

// EventSource is a dispatcher that must be pumped, such as Redis pub/sub.
type EventSource interface {
	Run(ctx context.Context) error
}

// StartEventWorkers registers notification handlers and pumps every remote
// event source until ctx is cancelled. It blocks; the returned error is the
// first source failure.
func StartEventWorkers(ctx context.Context, notificationService *service.NotificationService, logger *zap.Logger, sources ...EventSource) error {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, source := range sources {
		if source == nil {
			continue
		}
		source := source
		group.Go(func() error {
			return source.Run(ctx)
		})
	}
	err := group.Wait()
	if err != nil {
		logger.Error("event worker stopped", zap.Error(err))
	}
	return err
}
