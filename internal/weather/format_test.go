package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	temp := 12.5
	full := FetchResult{Summary: &Summary{CurrentTemp: &temp, WeatherLabel: "Couvert"}}
	assert.Equal(t, "Nantes : 13°C, Couvert. Prévisions enregistrées.", Describe("Nantes", full))

	neg := -0.6
	cold := FetchResult{Summary: &Summary{CurrentTemp: &neg, WeatherLabel: "Neige"}}
	assert.Equal(t, "Lille : -1°C, Neige. Prévisions enregistrées.", Describe("Lille", cold))

	noLabel := FetchResult{Summary: &Summary{CurrentTemp: &temp}}
	assert.Equal(t, "Prévisions pour Nantes enregistrées.", Describe("Nantes", noLabel))
	assert.Equal(t, "Prévisions pour 48.86, 2.35 enregistrées.", Describe("48.86, 2.35", FetchResult{}))
}

func TestFormatHour(t *testing.T) {
	assert.Equal(t, "10:00", FormatHour("2024-01-01T10:00"))
	assert.Equal(t, "23:00", FormatHour("2024-01-01T23:00:00Z"))
	assert.Equal(t, "-", FormatHour(""))
	assert.Equal(t, "2024-01-01", FormatHour("2024-01-01"))
}

func TestDayLabel(t *testing.T) {
	today := time.Date(2024, time.January, 1, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "Aujourd'hui", DayLabel("2024-01-01", today))
	assert.Equal(t, "mar. 2 janv.", DayLabel("2024-01-02", today))
	assert.Equal(t, "dim. 18 août", DayLabel("2024-08-18", today))
	assert.Equal(t, "", DayLabel("soon", today))
}
