package listeners

import (
	"context"
	"sync"
	"time"

	"github.com/SeaCloudHub/objdetect/domain"
	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/domain/pubsub"
	"go.uber.org/zap"
)

const publishTimeout = 500 * time.Millisecond

var _ EventListener = (*DetectionCompletedListener)(nil)

// DetectionCompletedListener announces every finished detection on a
// pubsub channel. Publishing runs in the background so a slow broker never
// holds up the request that produced the event.
type DetectionCompletedListener struct {
	publisher pubsub.Publisher
	channel   string
	logger    *zap.SugaredLogger
	wg        sync.WaitGroup
}

func NewDetectionCompletedListener(publisher pubsub.Publisher, channel string,
	logger *zap.SugaredLogger) *DetectionCompletedListener {
	return &DetectionCompletedListener{publisher: publisher, channel: channel, logger: logger}
}

func (l *DetectionCompletedListener) EventHandler(event domain.BaseDomainEvent) error {
	detectionCompletedEvent, ok := event.(detection.DetectionCompletedEvent)
	if !ok {
		return nil
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := l.publisher.Publish(ctx, l.channel, detectionCompletedEvent); err != nil {
			l.logger.Warnw("publish detection event",
				zap.String("id", detectionCompletedEvent.ID),
				zap.String("channel", l.channel),
				zap.Error(err),
			)
		}
	}()

	return nil
}

// Wait blocks until every pending publish has returned.
func (l *DetectionCompletedListener) Wait() {
	l.wg.Wait()
}
