package validate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/calcforge/calcforge/internal/estimate"
)

// ItemResult pairs one item's validated config with its validation error;
// exactly one of the two is set.
type ItemResult struct {
	Config *Config
	Err    error
}

// ValidateAll validates every item concurrently and returns results aligned
// with the input order. Validation never touches the session, so this is
// safe to run ahead of orchestration.
func (v *Validator) ValidateAll(ctx context.Context, items []estimate.Item) []ItemResult {
	results := make([]ItemResult, len(items))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			cfg, err := v.Validate(item.ServiceType, item.Fields)
			results[i] = ItemResult{Config: cfg, Err: err}
			return nil
		})
	}
	// Workers only record per-item results, never return errors.
	_ = g.Wait()

	return results
}
