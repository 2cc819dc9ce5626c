package reporting

import (
	"context"
	"fmt"

	"github.com/nerrad567/devicekit/internal/infrastructure/mqtt"
)

// CommandRefresh is the command name that triggers a refresh pass.
const CommandRefresh = "refresh"

// Subscriber is the MQTT surface used for remote commands. *mqtt.Client
// satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// ListenCommands subscribes to the refresh command topic for the current
// device key. Payloads are ignored; any message triggers a refresh.
// Passes started this way are bound to ctx, and the subscription is
// dropped when ctx ends.
func (r *Reporter) ListenCommands(ctx context.Context, sub Subscriber) error {
	topic := mqtt.Topics{}.DeviceCommand(r.DeviceKey(), CommandRefresh)
	err := sub.Subscribe(topic, 1, func(string, []byte) error {
		r.TriggerRefresh(ctx, "mqtt")
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	r.logger.Info("listening for refresh commands", "topic", topic)

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(topic); err != nil {
			r.logger.Debug("dropping refresh command subscription", "topic", topic, "error", err)
		}
	}()
	return nil
}
