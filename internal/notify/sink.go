package notify

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// DefaultPublishTimeout bounds a single delivery to an external consumer.
const DefaultPublishTimeout = 5 * time.Second

// HTTPSink posts events to a fixed URL in CloudEvents binary mode.
// A delivery that takes longer than Timeout is abandoned.
type HTTPSink struct {
	client  cloudevents.Client
	target  string
	Timeout time.Duration
}

func NewHTTPSink(target string) (*HTTPSink, error) {
	c, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create CloudEvents client: %w", err)
	}
	return &HTTPSink{client: c, target: target, Timeout: DefaultPublishTimeout}, nil
}

func (s *HTTPSink) Publish(ctx context.Context, e cloudevents.Event) error {
	ctx, cancel := withPublishTimeout(ctx, s.Timeout)
	defer cancel()
	ctx = cloudevents.ContextWithTarget(ctx, s.target)
	res := s.client.Send(ctx, e)
	if cloudevents.IsUndelivered(res) {
		return fmt.Errorf("event %s undelivered to %s: %w", e.ID(), s.target, res)
	}
	if !cloudevents.IsACK(res) {
		return fmt.Errorf("event %s rejected by %s: %w", e.ID(), s.target, res)
	}
	return nil
}

func withPublishTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultPublishTimeout
	}
	return context.WithTimeout(ctx, d)
}
