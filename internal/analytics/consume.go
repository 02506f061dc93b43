package analytics

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/kafka"
)

// HandleEvent returns a Kafka message handler that folds published search
// events into agg. Undecodable messages are logged and skipped so the
// consumer keeps committing.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			agg.logger.Warn("skipping undecodable analytics event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}
