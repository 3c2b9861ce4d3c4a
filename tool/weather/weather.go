// Package weather exposes current weather lookups as a tool backed by a
// WeatherAPI-style upstream.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/veramoney/chatmesh/tool"
)

// Upstream API error codes.
const (
	errLocationNotFound = 1006
	errInvalidAPIKey    = 2006
	errQuotaExceeded    = 2007
)

const defaultBaseURL = "https://api.weatherapi.com/v1"

// Options configure the weather tool.
type Options struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	// MaxAttempts bounds retries of transient upstream failures.
	MaxAttempts int
}

// Tool implements tool.Tool against the weather upstream.
type Tool struct {
	opts Options
}

// New constructs the weather tool. The API key defaults to the
// CHATMESH_WEATHER_API_KEY environment variable.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{
		APIKey:      os.Getenv("CHATMESH_WEATHER_API_KEY"),
		BaseURL:     defaultBaseURL,
		MaxAttempts: 3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		opts.Client = tool.SharedHTTPClient()
	}
	return &Tool{opts: opts}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return tool.WeatherToolName }

// Description implements tool.Tool.
func (t *Tool) Description() string {
	return "Get current weather information for a city. Returns temperature, humidity, conditions, and wind speed."
}

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city_name": map[string]any{
				"type":        "string",
				"description": "Name of the city to get weather for",
			},
			"country_code": map[string]any{
				"type":        "string",
				"description": "ISO 3166 country code to disambiguate city names",
			},
		},
		"required": []string{"city_name"},
	}
}

// apiResponse mirrors the subset of the upstream payload we consume.
type apiResponse struct {
	Location struct {
		Name    string `json:"name"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		LastUpdatedEpoch int64   `json:"last_updated_epoch"`
		TempC            float64 `json:"temp_c"`
		FeelsLikeC       float64 `json:"feelslike_c"`
		Humidity         int     `json:"humidity"`
		WindKph          float64 `json:"wind_kph"`
		VisKm            float64 `json:"vis_km"`
		Condition        struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Output is the JSON payload returned to the model.
type Output struct {
	City               string  `json:"city"`
	Country            string  `json:"country"`
	Region             string  `json:"region"`
	TemperatureCelsius float64 `json:"temperature_celsius"`
	FeelsLikeCelsius   float64 `json:"feels_like_celsius"`
	HumidityPercent    int     `json:"humidity_percent"`
	Conditions         string  `json:"conditions"`
	WindSpeedKph       float64 `json:"wind_speed_kph"`
	VisibilityKm       float64 `json:"visibility_km"`
	Timestamp          int64   `json:"timestamp"`
}

// Invoke implements tool.Tool. Transient upstream failures are retried with
// exponential backoff; classification failures surface as *tool.Error.
func (t *Tool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if t.opts.APIKey == "" {
		return "", tool.NewError(t.Name(), tool.CodeUpstreamUnavailable,
			"weather tool is not configured")
	}

	city, _ := args["city_name"].(string)
	if strings.TrimSpace(city) == "" {
		return "", tool.NewError(t.Name(), tool.CodeInvalidInput, "city_name is required")
	}

	locationQuery := city
	if cc, _ := args["country_code"].(string); cc != "" {
		locationQuery = fmt.Sprintf("%s,%s", city, cc)
	}

	return tool.WithRetry(ctx, t.Name(), t.opts.MaxAttempts, func(ctx context.Context) (string, error) {
		return t.fetch(ctx, locationQuery)
	})
}

func (t *Tool) fetch(ctx context.Context, locationQuery string) (string, error) {
	q := url.Values{}
	q.Set("key", t.opts.APIKey)
	q.Set("q", locationQuery)
	q.Set("aqi", "no")

	reqURL := fmt.Sprintf("%s/current.json?%s", t.opts.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", tool.WrapError(t.Name(), tool.CodeInvalidInput, "building request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.opts.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", tool.WrapError(t.Name(), tool.CodeUpstreamTimeout, "weather request timed out", err)
		}
		return "", tool.WrapError(t.Name(), tool.CodeUpstreamUnavailable, "weather service unreachable", err)
	}
	defer resp.Body.Close()

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", tool.WrapError(t.Name(), tool.CodeUpstreamUnavailable, "decoding weather response", err)
	}

	if payload.Error != nil {
		return "", t.classifyAPIError(payload.Error.Code, payload.Error.Message, locationQuery)
	}
	if resp.StatusCode != http.StatusOK {
		return "", tool.NewError(t.Name(), tool.CodeUpstreamUnavailable,
			fmt.Sprintf("weather service error: %d", resp.StatusCode))
	}

	out := Output{
		City:               payload.Location.Name,
		Country:            payload.Location.Country,
		Region:             payload.Location.Region,
		TemperatureCelsius: payload.Current.TempC,
		FeelsLikeCelsius:   payload.Current.FeelsLikeC,
		HumidityPercent:    payload.Current.Humidity,
		Conditions:         payload.Current.Condition.Text,
		WindSpeedKph:       payload.Current.WindKph,
		VisibilityKm:       payload.Current.VisKm,
		Timestamp:          payload.Current.LastUpdatedEpoch,
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", tool.WrapError(t.Name(), tool.CodeUpstreamUnavailable, "encoding weather output", err)
	}

	return string(data), nil
}

func (t *Tool) classifyAPIError(code int, message, locationQuery string) *tool.Error {
	switch code {
	case errLocationNotFound:
		return tool.NewError(t.Name(), tool.CodeNotFound,
			fmt.Sprintf("city %q not found", locationQuery))
	case errInvalidAPIKey:
		return tool.NewError(t.Name(), tool.CodeUpstreamUnavailable, "invalid weather API key")
	case errQuotaExceeded:
		return tool.NewError(t.Name(), tool.CodeUpstreamUnavailable, "weather API quota exceeded")
	default:
		if message == "" {
			message = "unknown error"
		}
		return tool.NewError(t.Name(), tool.CodeUpstreamUnavailable,
			fmt.Sprintf("weather API error: %s", message))
	}
}
