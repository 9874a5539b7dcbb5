package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// City is a named coordinate pair offered for quick forecast fetches.
type City struct {
	Name      string  `yaml:"name" json:"name"`
	Latitude  float64 `yaml:"lat" json:"latitude"`
	Longitude float64 `yaml:"lon" json:"longitude"`
}

// DefaultCities is used when no CITIES_FILE is configured.
var DefaultCities = []City{
	{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522},
	{Name: "Lyon", Latitude: 45.764, Longitude: 4.8357},
	{Name: "Marseille", Latitude: 43.2965, Longitude: 5.3698},
	{Name: "Toulouse", Latitude: 43.6047, Longitude: 1.4442},
	{Name: "Bordeaux", Latitude: 44.8378, Longitude: -0.5792},
}

type citiesFile struct {
	Cities []City `yaml:"cities"`
}

// LoadCities reads preset cities from a YAML file. An empty path yields DefaultCities.
func LoadCities(path string) ([]City, error) {
	if path == "" {
		return append([]City(nil), DefaultCities...), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cities file: %w", err)
	}

	var f citiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing cities file: %w", err)
	}
	if len(f.Cities) == 0 {
		return nil, fmt.Errorf("cities file %s lists no cities", path)
	}
	for i, c := range f.Cities {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("cities file %s: entry %d has no name", path, i)
		}
		if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
			return nil, fmt.Errorf("cities file %s: %s has out-of-range coordinates", path, c.Name)
		}
	}
	return f.Cities, nil
}

// FindCity looks a preset up by case-insensitive name.
func FindCity(cities []City, name string) (City, bool) {
	for _, c := range cities {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, true
		}
	}
	return City{}, false
}
