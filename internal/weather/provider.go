package weather

import (
	"context"
	"net/url"
)

// Resolver turns coordinates into a place label. It never fails; the worst
// case is a label made of the coordinates themselves.
type Resolver interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) string
}

// Waiter paces successive calls.
type Waiter interface {
	Wait(ctx context.Context) error
}

// LabelCache keeps resolved labels by coordinate key.
type LabelCache interface {
	Save(key, label string)
	Labels(keys []string) map[string]string
}

// backend is the slice of the transport client the command surface needs.
type backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}
