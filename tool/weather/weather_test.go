package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veramoney/chatmesh/tool"
)

const currentWeatherPayload = `{
	"location": {"name": "Montevideo", "region": "Montevideo", "country": "Uruguay"},
	"current": {
		"last_updated_epoch": 1724934600,
		"temp_c": 18.0,
		"feelslike_c": 17.2,
		"humidity": 72,
		"wind_kph": 14.5,
		"vis_km": 10.0,
		"condition": {"text": "Partly cloudy"}
	}
}`

func newTestTool(serverURL string) *Tool {
	return New(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = serverURL
		o.MaxAttempts = 1
	})
}

func TestWeather_Invoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "Montevideo,UY", r.URL.Query().Get("q"))
		fmt.Fprint(w, currentWeatherPayload)
	}))
	defer srv.Close()

	result, err := newTestTool(srv.URL).Invoke(context.Background(), map[string]any{
		"city_name":    "Montevideo",
		"country_code": "UY",
	})
	require.NoError(t, err)

	var out Output
	require.NoError(t, json.Unmarshal([]byte(result), &out))
	assert.Equal(t, "Montevideo", out.City)
	assert.Equal(t, "Uruguay", out.Country)
	assert.InDelta(t, 18.0, out.TemperatureCelsius, 0.001)
	assert.Equal(t, 72, out.HumidityPercent)
	assert.Equal(t, "Partly cloudy", out.Conditions)
}

func TestWeather_MissingCityIsInvalidInput(t *testing.T) {
	_, err := newTestTool("http://unused").Invoke(context.Background(), map[string]any{})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeInvalidInput, te.Code)
}

func TestWeather_UnknownLocationIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"code": 1006, "message": "No matching location found."}}`)
	}))
	defer srv.Close()

	_, err := newTestTool(srv.URL).Invoke(context.Background(), map[string]any{"city_name": "Atlantis"})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeNotFound, te.Code)
	assert.False(t, te.Retryable())
}

func TestWeather_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	_, err := newTestTool(srv.URL).Invoke(context.Background(), map[string]any{"city_name": "Montevideo"})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeUpstreamUnavailable, te.Code)
	assert.True(t, te.Retryable())
}

func TestWeather_MissingAPIKey(t *testing.T) {
	unconfigured := New(func(o *Options) {
		o.APIKey = ""
		o.MaxAttempts = 1
	})

	_, err := unconfigured.Invoke(context.Background(), map[string]any{"city_name": "Montevideo"})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeUpstreamUnavailable, te.Code)
}
