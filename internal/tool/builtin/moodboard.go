package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	toolcore "github.com/ashimregmi/sathi/internal/tool"
)

const (
	defaultMoodboardBaseURL = "https://fal.run/fal-ai/flux/schnell"
	maxMoodboardImages      = 2
)

type moodboardInput struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

type moodboardImage struct {
	PromptUsed string `json:"prompt_used"`
	ImageURL   string `json:"image_url"`
	Seed       int64  `json:"seed"`
}

type moodboardOutput struct {
	Images []moodboardImage `json:"images"`
	Error  string           `json:"error,omitempty"`
}

type falResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Seed int64 `json:"seed"`
}

// MoodboardTool generates AI images from a descriptive prompt via fal.ai.
type MoodboardTool struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

func NewMoodboardTool(baseURL, apiKey string, timeout time.Duration) *MoodboardTool {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultMoodboardBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &MoodboardTool{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
	}
}

func (t *MoodboardTool) Name() string { return toolcore.CapabilityGenerateImages }

func (t *MoodboardTool) Description() string {
	return "Generate a moodboard of AI images from a descriptive visual prompt."
}

func (t *MoodboardTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in moodboardInput
	if err := json.Unmarshal(input, &in); err != nil {
		return json.Marshal(moodboardOutput{Error: fmt.Sprintf("invalid input: %v", err)})
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return json.Marshal(moodboardOutput{Error: "prompt is required"})
	}

	count := in.Count
	if count < 1 {
		count = 1
	}
	if count > maxMoodboardImages {
		count = maxMoodboardImages
	}

	out := moodboardOutput{}
	for i := 0; i < count; i++ {
		img, err := t.generateOne(ctx, in.Prompt)
		if err != nil {
			return nil, err
		}
		if img == nil {
			return json.Marshal(moodboardOutput{Error: "image provider returned no images"})
		}
		out.Images = append(out.Images, *img)
	}

	return json.Marshal(out)
}

func (t *MoodboardTool) generateOne(ctx context.Context, prompt string) (*moodboardImage, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"prompt":     prompt,
		"num_images": 1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+t.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image provider HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed falResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("malformed image provider response: %w", err)
	}
	if len(parsed.Images) == 0 {
		return nil, nil
	}

	return &moodboardImage{
		PromptUsed: prompt,
		ImageURL:   parsed.Images[0].URL,
		Seed:       parsed.Seed,
	}, nil
}
