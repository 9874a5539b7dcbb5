package weather

import "context"

// Enrich resolves a label for each group, one lookup at a time, waiting on
// throttle before every lookup. ctx is checked after each suspension point;
// once it is done, Enrich returns without applying anything further.
func Enrich(ctx context.Context, groups []CoordinateGroup, resolver Resolver, throttle Waiter, apply func(key, label string)) error {
	for _, g := range groups {
		if err := throttle.Wait(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		label := resolver.ReverseGeocode(ctx, g.Latitude, g.Longitude)
		if err := ctx.Err(); err != nil {
			return err
		}
		apply(g.Key, label)
	}
	return nil
}
