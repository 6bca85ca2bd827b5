package realtime

import "context"

// Loader produces the current snapshot for a topic.
type Loader[T any] func(ctx context.Context) (T, error)

// Watch returns a lazy snapshot stream: the full state is loaded and emitted
// immediately and again after every change signal on topic. The channel closes
// when ctx ends. A failed load is logged and skipped; the next signal retries it.
func Watch[T any](ctx context.Context, hub *Hub, topic string, load Loader[T]) <-chan T {
	out := make(chan T, 1)
	sub := hub.Subscribe(topic)

	go func() {
		defer close(out)
		defer sub.Close()

		for {
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				hub.logger.Warn().Err(err).Str("topic", topic).Msg("failed to load snapshot")
			} else {
				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-sub.Signals():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
