package weather

import (
	"fmt"
	"math"
	"time"
)

var (
	frenchWeekdays = [...]string{"dim.", "lun.", "mar.", "mer.", "jeu.", "ven.", "sam."}
	frenchMonths   = [...]string{"janv.", "févr.", "mars", "avr.", "mai", "juin", "juil.", "août", "sept.", "oct.", "nov.", "déc."}
)

// Describe renders the confirmation shown after a fetch for a named place.
func Describe(name string, res FetchResult) string {
	if s := res.Summary; s != nil && s.CurrentTemp != nil && s.WeatherLabel != "" {
		temp := int(math.Floor(*s.CurrentTemp + 0.5))
		return fmt.Sprintf("%s : %d°C, %s. Prévisions enregistrées.", name, temp, s.WeatherLabel)
	}
	return fmt.Sprintf("Prévisions pour %s enregistrées.", name)
}

// FormatHour extracts HH:MM from an ISO timestamp.
func FormatHour(ts string) string {
	if ts == "" {
		return "-"
	}
	if len(ts) < 16 {
		return ts
	}
	return ts[11:16]
}

// DayLabel names a YYYY-MM-DD day relative to today: "Aujourd'hui" or a
// short French date such as "lun. 1 janv.".
func DayLabel(day string, today time.Time) string {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		return ""
	}
	y, m, dd := today.Date()
	if d.Year() == y && d.Month() == m && d.Day() == dd {
		return "Aujourd'hui"
	}
	return fmt.Sprintf("%s %d %s", frenchWeekdays[d.Weekday()], d.Day(), frenchMonths[d.Month()-1])
}
