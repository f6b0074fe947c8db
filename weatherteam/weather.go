package weatherteam

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/agentteam/internal/textutil"
	"github.com/hupe1980/agentteam/tool"
)

// ErrUnknownCity is returned by a WeatherSource that has no report for a city.
var ErrUnknownCity = errors.New("unknown city")

// Forecast is one entry of a weather source.
type Forecast struct {
	// City is the display name.
	City string
	// Aliases are alternative spellings, e.g. "Hà Nội" for Hanoi.
	Aliases []string
	// Report is the human readable weather report.
	Report string
}

// WeatherSource looks up weather reports by city name.
type WeatherSource interface {
	// Lookup returns the forecast for city or an error wrapping ErrUnknownCity.
	Lookup(ctx context.Context, city string) (Forecast, error)
	// Cities lists every name (display names and aliases) Lookup accepts.
	Cities() []string
}

// MapSource is an in-memory WeatherSource. City names are matched ignoring
// case, spaces and diacritics, so "Ha Noi", "hanoi" and "Hà Nội" are equal.
type MapSource struct {
	entries map[string]Forecast
	names   []string
}

// NewMapSource creates a source from forecasts.
func NewMapSource(forecasts ...Forecast) *MapSource {
	s := &MapSource{entries: make(map[string]Forecast, len(forecasts))}

	for _, f := range forecasts {
		for _, name := range append([]string{f.City}, f.Aliases...) {
			key := textutil.Compact(name)
			if key == "" {
				continue
			}
			if _, dup := s.entries[key]; !dup {
				s.names = append(s.names, name)
			}
			s.entries[key] = f
		}
	}

	return s
}

// DefaultSource returns the mock table of the demo.
func DefaultSource() *MapSource {
	return NewMapSource(
		Forecast{City: "Hanoi", Aliases: []string{"Hà Nội"}, Report: "☀️ Hanoi: Sunny, 25°C"},
		Forecast{City: "London", Report: "☁️ London: Cloudy, 15°C"},
		Forecast{City: "Tokyo", Report: "🌧️ Tokyo: Light rain, 18°C"},
	)
}

// Lookup implements WeatherSource.
func (s *MapSource) Lookup(_ context.Context, city string) (Forecast, error) {
	f, ok := s.entries[textutil.Compact(city)]
	if !ok {
		return Forecast{}, fmt.Errorf("%w: %q", ErrUnknownCity, city)
	}

	return f, nil
}

// Cities implements WeatherSource.
func (s *MapSource) Cities() []string { return slices.Clone(s.names) }

// WeatherArgs are the arguments of get_weather.
type WeatherArgs struct {
	City string `json:"city" jsonschema:"description=Name of the city, e.g. Hanoi, London or Tokyo"`
}

// NewWeatherTool creates the get_weather tool over src.
func NewWeatherTool(src WeatherSource) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		GetWeatherToolName,
		"Retrieves the current weather report for a specified city.",
		WeatherArgs{},
		func(tc *tool.Context, args map[string]any) (tool.Result, error) {
			city, _ := args["city"].(string)

			f, err := src.Lookup(tc.Context(), city)
			if errors.Is(err, ErrUnknownCity) {
				return tool.Failuref("Sorry, no weather information for '%s'.", city), nil
			}

			if err != nil {
				return tool.Result{}, fmt.Errorf("weather lookup for %s: %w", city, err)
			}

			return tool.Success(map[string]any{"city": f.City, "report": f.Report}), nil
		},
	)
}
