package weather

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/i474232898/weather-tracker-client/internal/geocoding"
	"github.com/i474232898/weather-tracker-client/internal/store"
)

// Aggregator is the pipeline consumers read from: it groups raw records,
// enriches the groups with place labels in the background, merges groups
// that share a label and indexes the result by day.
//
// Derived state is rebuilt from scratch on every Aggregate call. A call
// whose coordinate key set differs from the previous one cancels the
// enrichment run in flight; results from a cancelled run are dropped.
// Labels for the current key set are held here as well as in the shared
// cache, so cache eviction never turns a resolved location back into a
// placeholder.
type Aggregator struct {
	resolver Resolver
	labels   LabelCache
	interval time.Duration

	// generation identifies the current enrichment run.
	generation atomic.Uint64

	mu       sync.Mutex
	groups   []CoordinateGroup
	keySet   string
	resolved map[string]string // labels for the current key set
	cancel   context.CancelFunc
	done     chan struct{}
	onUpdate func(Result)
}

// NewAggregator builds an aggregator. interval spaces reverse lookups inside
// one enrichment run. A nil labels cache gets an unbounded in-memory one.
func NewAggregator(resolver Resolver, labels LabelCache, interval time.Duration) *Aggregator {
	if labels == nil {
		labels = store.NewLabelStore(0, 0)
	}
	return &Aggregator{
		resolver: resolver,
		labels:   labels,
		interval: interval,
		resolved: make(map[string]string),
	}
}

// OnUpdate registers fn to receive the new view each time a label lands.
func (a *Aggregator) OnUpdate(fn func(Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onUpdate = fn
}

// Aggregate replaces the record set and returns the immediate view. Groups
// without a known label appear under their coordinate key with
// Resolved=false until enrichment catches up.
func (a *Aggregator) Aggregate(records []Record) Result {
	groups := Group(records)
	keySet := keySignature(groups)

	a.mu.Lock()
	a.groups = groups
	switch {
	case keySet != a.keySet:
		a.keySet = keySet
		a.resetLabelsLocked(groups)
		a.restartLocked(groups)
	case !a.runningLocked() && a.missingLocked(groups):
		// A cancelled run left some groups unlabelled.
		a.restartLocked(groups)
	}
	a.mu.Unlock()

	return a.Current()
}

// Current recomputes the view from the latest records and known labels.
func (a *Aggregator) Current() Result {
	a.mu.Lock()
	groups := a.groups
	labels := make(map[string]string, len(a.resolved))
	for k, v := range a.resolved {
		labels[k] = v
	}
	a.mu.Unlock()

	return Build(groups, labels)
}

// Wait blocks until no enrichment run is active, then returns the view.
func (a *Aggregator) Wait(ctx context.Context) (Result, error) {
	for {
		a.mu.Lock()
		done := a.done
		a.mu.Unlock()

		if done == nil {
			return a.Current(), nil
		}

		select {
		case <-done:
			a.mu.Lock()
			finished := a.done == done
			if finished {
				a.done = nil
			}
			a.mu.Unlock()
			if finished {
				return a.Current(), nil
			}
		case <-ctx.Done():
			return a.Current(), ctx.Err()
		}
	}
}

// Close cancels any enrichment in flight.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.generation.Inc()
}

// resetLabelsLocked keeps the labels of groups still present and seeds the
// rest from the cache. Callers hold a.mu.
func (a *Aggregator) resetLabelsLocked(groups []CoordinateGroup) {
	cached := a.labels.Labels(groupKeys(groups))
	resolved := make(map[string]string, len(groups))
	for _, g := range groups {
		if label, ok := a.resolved[g.Key]; ok {
			resolved[g.Key] = label
		} else if label, ok := cached[g.Key]; ok {
			resolved[g.Key] = label
		}
	}
	a.resolved = resolved
}

// runningLocked reports whether an enrichment run is still in flight.
func (a *Aggregator) runningLocked() bool {
	if a.done == nil {
		return false
	}
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

func (a *Aggregator) missingLocked(groups []CoordinateGroup) bool {
	for _, g := range groups {
		if _, ok := a.resolved[g.Key]; !ok {
			return true
		}
	}
	return false
}

// restartLocked cancels the current run and starts one for the groups that
// have no label yet. Callers hold a.mu.
func (a *Aggregator) restartLocked(groups []CoordinateGroup) {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	gen := a.generation.Inc()

	var missing []CoordinateGroup
	for _, g := range groups {
		if _, ok := a.resolved[g.Key]; !ok {
			missing = append(missing, g)
		}
	}
	if len(missing) == 0 {
		a.done = nil
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done

	go func() {
		defer close(done)
		defer cancel()

		throttle := geocoding.NewThrottle(a.interval)
		err := Enrich(ctx, missing, a.resolver, throttle, func(key, label string) {
			a.apply(gen, key, label)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("ERROR: enrichment run %d stopped: %v", gen, err)
			return
		}
		if err == nil {
			log.Printf("DEBUG: enrichment run %d resolved %d locations", gen, len(missing))
		}
	}()
}

// apply stores a label unless its run has been superseded.
func (a *Aggregator) apply(gen uint64, key, label string) {
	a.mu.Lock()
	if a.generation.Load() != gen {
		a.mu.Unlock()
		return
	}
	a.resolved[key] = label
	a.labels.Save(key, label)
	onUpdate := a.onUpdate
	a.mu.Unlock()

	if onUpdate != nil {
		onUpdate(a.Current())
	}
}

func groupKeys(groups []CoordinateGroup) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}

// keySignature identifies a set of coordinate keys regardless of order.
func keySignature(groups []CoordinateGroup) string {
	keys := groupKeys(groups)
	sort.Strings(keys)
	return strings.Join(keys, ";")
}
