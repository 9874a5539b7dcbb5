package weather

import "sort"

// Group partitions records by exact coordinate key, keeping first-seen order
// of groups and of records within each group.
func Group(records []Record) []CoordinateGroup {
	index := make(map[string]int)
	var groups []CoordinateGroup

	for _, r := range records {
		key := r.CoordinateKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, CoordinateGroup{
				Key:       key,
				Latitude:  r.Latitude,
				Longitude: r.Longitude,
			})
		}
		groups[i].Forecasts = append(groups[i].Forecasts, r)
	}
	return groups
}

// Name turns groups into single-group locations, keyed by their label when
// one is known and by their coordinate key otherwise.
func Name(groups []CoordinateGroup, labels map[string]string) []Location {
	locations := make([]Location, 0, len(groups))
	for _, g := range groups {
		loc := Location{
			Key:         g.Key,
			Coordinates: []string{g.Key},
			Forecasts:   g.Forecasts,
		}
		if label, ok := labels[g.Key]; ok && label != "" {
			loc.Key = label
			loc.Resolved = true
		}
		locations = append(locations, loc)
	}
	return locations
}

// Merge combines locations sharing a key, concatenating their forecasts in
// order and dropping any forecast whose timestamp was already seen for that
// key. A merged location is resolved only if all of its parts were.
// Merging an already merged set returns the same structure.
func Merge(locations []Location) []Location {
	index := make(map[string]int)
	var merged []Location

	for _, loc := range locations {
		i, ok := index[loc.Key]
		if !ok {
			i = len(merged)
			index[loc.Key] = i
			merged = append(merged, Location{Key: loc.Key, Resolved: loc.Resolved})
		} else if !loc.Resolved {
			merged[i].Resolved = false
		}
		merged[i].Coordinates = append(merged[i].Coordinates, loc.Coordinates...)
		merged[i].Forecasts = append(merged[i].Forecasts, loc.Forecasts...)
	}

	for i := range merged {
		merged[i].Coordinates = distinct(merged[i].Coordinates)
		merged[i].Forecasts = dedupeByTime(merged[i].Forecasts)
	}
	return merged
}

// BuildDateIndex lists, per location, the distinct calendar days present in
// its forecasts in ascending order.
func BuildDateIndex(locations []Location) DateIndex {
	index := make(DateIndex, len(locations))
	for _, loc := range locations {
		seen := make(map[string]struct{})
		days := []string{}
		for _, f := range loc.Forecasts {
			day := f.Day()
			if day == "" {
				continue
			}
			if _, ok := seen[day]; ok {
				continue
			}
			seen[day] = struct{}{}
			days = append(days, day)
		}
		sort.Strings(days)
		index[loc.Key] = days
	}
	return index
}

// Build runs the synchronous half of the pipeline for a given label set.
func Build(groups []CoordinateGroup, labels map[string]string) Result {
	named := Name(groups, labels)

	pending := 0
	for _, loc := range named {
		if !loc.Resolved {
			pending++
		}
	}

	locations := Merge(named)
	return Result{
		Locations: locations,
		Dates:     BuildDateIndex(locations),
		Pending:   pending,
	}
}

// dedupeByTime keeps the first record for each timestamp.
func dedupeByTime(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Time]; ok {
			continue
		}
		seen[r.Time] = struct{}{}
		out = append(out, r)
	}
	return out
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
