package provider

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Gather runs fetch for every key with at most limit calls in flight.
// Failed keys are logged and dropped; results keep the order of keys.
// Only when every key fails does Gather return ErrNoStations.
func Gather[K any, V any](ctx context.Context, keys []K, limit int, log *zap.Logger, fetch func(context.Context, K) (V, error)) ([]V, error) {
	if log == nil {
		log = zap.NewNop()
	}
	type slot struct {
		v  V
		ok bool
	}
	slots := make([]slot, len(keys))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, k := range keys {
		g.Go(func() error {
			v, err := fetch(ctx, k)
			if err != nil {
				log.Debug("dropping failed fetch", zap.Any("key", k), zap.Error(err))
				return nil
			}
			slots[i] = slot{v: v, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]V, 0, len(keys))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.v)
		}
	}
	if len(out) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoStations
	}
	return out, nil
}
