package link

import (
	"context"
	"errors"
	"time"
)

// Run reads frames until ctx is done and emits them on out.
// One goroutine per port. Frames are emitted in arrival order.
func (l *Link) Run(ctx context.Context, out chan<- FrameResult) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, ok := l.ReadOnce()
		if !ok {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case out <- res:
		}

		if errors.Is(res.Err, ErrClosed) {
			return
		}
		if res.Err != nil {
			// port is down: give the device time to come back
			t := time.NewTimer(l.cfg.Retry)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}
