package run

import (
	"context"
	"math/rand"
	"time"
)

// pickJitter returns a uniform delay in [min, max].
func pickJitter(min, max time.Duration, rnd *rand.Rand) time.Duration {
	if max <= min {
		return min
	}
	span := int64(max - min)
	var n int64
	if rnd != nil {
		n = rnd.Int63n(span + 1)
	} else {
		n = rand.Int63n(span + 1)
	}
	return min + time.Duration(n)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
