package builtin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherFixture = `{
	"forecast": {
		"forecastday": [
			{
				"date": "2026-09-01",
				"day": {
					"maxtemp_c": 27.4,
					"mintemp_c": 18.1,
					"daily_chance_of_rain": 70,
					"condition": {"text": "Patchy rain nearby"}
				}
			},
			{
				"date": "2026-09-02",
				"day": {
					"maxtemp_c": 25.0,
					"mintemp_c": 17.2,
					"daily_chance_of_rain": 10,
					"condition": {"text": "Sunny"}
				}
			}
		]
	}
}`

func TestWeatherToolExecute_Forecast(t *testing.T) {
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"key":  r.URL.Query().Get("key"),
			"q":    r.URL.Query().Get("q"),
			"days": r.URL.Query().Get("days"),
		}
		_, _ = io.WriteString(w, weatherFixture)
	}))
	defer server.Close()

	tool := NewWeatherTool(server.URL, "weather-key", 5*time.Second)
	tool.Client = server.Client()

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"Kathmandu","start_date":"2026-09-01","end_date":"2026-09-02"}`))
	require.NoError(t, err)

	var out weatherOutput
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Empty(t, out.Error)
	assert.Equal(t, "Kathmandu", out.Location)
	require.Len(t, out.Days, 2)
	assert.Equal(t, "2026-09-01", out.Days[0].Date)
	assert.Equal(t, "Tuesday", out.Days[0].DayOfWeek)
	assert.Equal(t, "Patchy rain nearby", out.Days[0].Condition)
	assert.Equal(t, 70, out.Days[0].ChanceOfRainPct)
	assert.InDelta(t, 27.4, out.Days[0].TempMaxC, 0.01)

	assert.Equal(t, "weather-key", gotQuery["key"])
	assert.Equal(t, "Kathmandu", gotQuery["q"])
	assert.Equal(t, "2", gotQuery["days"])
}

func TestWeatherToolExecute_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":{"code":1006,"message":"No matching location found."}}`)
	}))
	defer server.Close()

	tool := NewWeatherTool(server.URL, "key", 5*time.Second)
	tool.Client = server.Client()

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"Nowhereville"}`))
	require.NoError(t, err)

	var out weatherOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "No matching location found.", out.Error)
	assert.Empty(t, out.Days)
}

func TestWeatherToolExecute_MissingLocation(t *testing.T) {
	tool := NewWeatherTool("http://unused", "key", time.Second)

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	var out weatherOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "location is required", out.Error)
}

func TestForecastDays(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{name: "single day", start: "2026-09-01", end: "2026-09-01", want: 1},
		{name: "inclusive range", start: "2026-09-01", end: "2026-09-04", want: 4},
		{name: "missing dates", start: "", end: "", want: 1},
		{name: "end before start", start: "2026-09-05", end: "2026-09-01", want: 1},
		{name: "capped at provider max", start: "2026-09-01", end: "2026-10-15", want: maxForecastDays},
		{name: "garbage dates", start: "next tuesday", end: "later", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, forecastDays(tt.start, tt.end))
		})
	}
}
