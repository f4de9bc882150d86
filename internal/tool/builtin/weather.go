package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	toolcore "github.com/ashimregmi/sathi/internal/tool"
)

const (
	defaultWeatherBaseURL = "https://api.weatherapi.com/v1"
	// WeatherAPI free plan caps the forecast window.
	maxForecastDays = 14
)

type weatherInput struct {
	Location  string `json:"location"`
	StartDate string `json:"start_date"` // YYYY-MM-DD, optional
	EndDate   string `json:"end_date"`   // YYYY-MM-DD inclusive, optional
}

type weatherDay struct {
	Date            string  `json:"date"`
	DayOfWeek       string  `json:"day_of_week"`
	TempMaxC        float64 `json:"temp_max_c"`
	TempMinC        float64 `json:"temp_min_c"`
	Condition       string  `json:"condition"`
	ChanceOfRainPct int     `json:"chance_of_rain_pct"`
}

type weatherOutput struct {
	Location string       `json:"location"`
	Days     []weatherDay `json:"days"`
	Error    string       `json:"error,omitempty"`
}

type weatherAPIResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC          float64 `json:"maxtemp_c"`
				MinTempC          float64 `json:"mintemp_c"`
				DailyChanceOfRain int     `json:"daily_chance_of_rain"`
				Condition         struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// WeatherTool fetches a daily forecast for a city from WeatherAPI.
type WeatherTool struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

func NewWeatherTool(baseURL, apiKey string, timeout time.Duration) *WeatherTool {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultWeatherBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WeatherTool{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
	}
}

func (t *WeatherTool) Name() string { return toolcore.CapabilityGetWeather }

func (t *WeatherTool) Description() string {
	return "Get a daily weather forecast for a city. Dates must be YYYY-MM-DD."
}

func (t *WeatherTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in weatherInput
	if err := json.Unmarshal(input, &in); err != nil {
		return json.Marshal(weatherOutput{Error: fmt.Sprintf("invalid input: %v", err)})
	}
	if strings.TrimSpace(in.Location) == "" {
		return json.Marshal(weatherOutput{Error: "location is required"})
	}

	days := forecastDays(in.StartDate, in.EndDate)

	q := url.Values{}
	q.Set("key", t.APIKey)
	q.Set("q", in.Location)
	q.Set("days", strconv.Itoa(days))
	q.Set("aqi", "no")
	q.Set("alerts", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.BaseURL+"/forecast.json?"+q.Encode(), nil)
	if err != nil {
		return json.Marshal(weatherOutput{Error: fmt.Sprintf("build request: %v", err)})
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return json.Marshal(weatherOutput{Error: fmt.Sprintf("read response: %v", err)})
	}

	var parsed weatherAPIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return json.Marshal(weatherOutput{Error: "malformed provider response"})
	}
	if parsed.Error != nil {
		return json.Marshal(weatherOutput{Error: parsed.Error.Message})
	}

	out := weatherOutput{Location: in.Location}
	for _, fd := range parsed.Forecast.ForecastDay {
		day := weatherDay{
			Date:            fd.Date,
			TempMaxC:        fd.Day.MaxTempC,
			TempMinC:        fd.Day.MinTempC,
			Condition:       fd.Day.Condition.Text,
			ChanceOfRainPct: fd.Day.DailyChanceOfRain,
		}
		if parsedDate, err := time.Parse("2006-01-02", fd.Date); err == nil {
			day.DayOfWeek = parsedDate.Weekday().String()
		}
		out.Days = append(out.Days, day)
	}

	return json.Marshal(out)
}

func forecastDays(startDate, endDate string) int {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return 1
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return 1
	}

	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	if days > maxForecastDays {
		return maxForecastDays
	}
	return days
}
