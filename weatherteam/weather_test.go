package weatherteam

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentteam/tool"
)

type failingSource struct{}

func (failingSource) Lookup(context.Context, string) (Forecast, error) {
	return Forecast{}, errors.New("backend down")
}

func (failingSource) Cities() []string { return nil }

func TestMapSource_Lookup(t *testing.T) {
	src := DefaultSource()

	for _, city := range []string{"Hanoi", "hanoi", "Ha Noi", "Hà Nội", "HÀ NỘI"} {
		f, err := src.Lookup(context.Background(), city)
		require.NoError(t, err, city)
		assert.Equal(t, "Hanoi", f.City)
	}

	_, err := src.Lookup(context.Background(), "Atlantis")
	require.ErrorIs(t, err, ErrUnknownCity)
	assert.Contains(t, err.Error(), "Atlantis")

	assert.Equal(t, []string{"Hanoi", "Hà Nội", "London", "Tokyo"}, src.Cities())
}

func TestWeatherTool(t *testing.T) {
	weather := NewWeatherTool(DefaultSource())

	assert.Equal(t, GetWeatherToolName, weather.Name())
	assert.Equal(t, []any{"city"}, weather.Parameters()["required"])

	t.Run("known city", func(t *testing.T) {
		res := weather.Call(nil, map[string]any{"city": "Tokyo"})

		require.True(t, res.IsSuccess())
		assert.Equal(t, "🌧️ Tokyo: Light rain, 18°C", res.Text())
		assert.Contains(t, res.Text(), "Tokyo")
		assert.Equal(t, "Tokyo", res.Payload["city"])
	})

	t.Run("unknown city", func(t *testing.T) {
		res := weather.Call(nil, map[string]any{"city": "Atlantis"})

		require.False(t, res.IsSuccess())
		assert.Equal(t, "Sorry, no weather information for 'Atlantis'.", res.Text())
	})

	t.Run("missing city", func(t *testing.T) {
		res := weather.Call(nil, map[string]any{})

		require.False(t, res.IsSuccess())
		assert.Equal(t, tool.CodeValidation, res.Payload["code"])
	})

	t.Run("source error", func(t *testing.T) {
		res := NewWeatherTool(failingSource{}).Call(nil, map[string]any{"city": "Paris"})

		require.False(t, res.IsSuccess())
		assert.Equal(t, tool.CodeExecution, res.Payload["code"])
		assert.Contains(t, res.Message, "backend down")
	})
}

func TestGreetingTools(t *testing.T) {
	hello := NewHelloTool()

	assert.Equal(t, "Hello!", hello.Call(nil, nil).Text())
	assert.Equal(t, "Hello!", hello.Call(nil, map[string]any{"name": "  "}).Text())
	assert.Equal(t, "Hello, Alice!", hello.Call(nil, map[string]any{"name": "Alice"}).Text())
	assert.Nil(t, hello.Parameters()["required"])

	assert.Equal(t, "Goodbye! Have a nice day!", NewGoodbyeTool().Call(nil, nil).Text())
}
