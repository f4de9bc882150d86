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
	"unicode/utf8"

	toolcore "github.com/ashimregmi/sathi/internal/tool"
)

const (
	defaultWhatsAppBaseURL = "https://graph.facebook.com/v21.0"
	// WhatsApp text messages are capped by the Cloud API.
	maxWhatsAppBodyChars = 4096
)

type whatsAppInput struct {
	ToNumber string `json:"to_number"`
	Body     string `json:"body"`
}

type whatsAppOutput struct {
	Status    string `json:"status"` // "sent" or "error"
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type whatsAppAPIResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// WhatsAppTool sends outbound text messages via the WhatsApp Cloud API.
// Outbound only; it never receives or processes replies.
type WhatsAppTool struct {
	Client        *http.Client
	BaseURL       string
	PhoneNumberID string
	AccessToken   string
}

func NewWhatsAppTool(baseURL, phoneNumberID, accessToken string, timeout time.Duration) *WhatsAppTool {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultWhatsAppBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WhatsAppTool{
		Client:        &http.Client{Timeout: timeout},
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		PhoneNumberID: phoneNumberID,
		AccessToken:   accessToken,
	}
}

func (t *WhatsAppTool) Name() string { return toolcore.CapabilitySendMessage }

func (t *WhatsAppTool) Description() string {
	return "Send an outbound WhatsApp text message. Recipient in international format without the +, body plain text up to 4096 characters."
}

func (t *WhatsAppTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in whatsAppInput
	if err := json.Unmarshal(input, &in); err != nil {
		return errorResult(fmt.Sprintf("invalid input: %v", err))
	}
	if strings.TrimSpace(in.ToNumber) == "" {
		return errorResult("to_number is required")
	}
	if strings.TrimSpace(in.Body) == "" {
		return errorResult("body is required")
	}

	body := truncateBody(in.Body, maxWhatsAppBodyChars)

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                in.ToNumber,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return errorResult(fmt.Sprintf("encode payload: %v", err))
	}

	url := fmt.Sprintf("%s/%s/messages", t.BaseURL, t.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return errorResult(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+t.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		// Propagate so the caller can distinguish timeouts from provider rejections.
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errorResult(fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorResult(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var parsed whatsAppAPIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.Messages) == 0 {
		return errorResult("malformed provider response")
	}

	return json.Marshal(whatsAppOutput{Status: "sent", MessageID: parsed.Messages[0].ID})
}

// truncateBody caps body at max bytes without splitting a multi-byte
// rune at the cut.
func truncateBody(body string, max int) string {
	if len(body) <= max {
		return body
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

func errorResult(reason string) (json.RawMessage, error) {
	return json.Marshal(whatsAppOutput{Status: "error", Error: reason})
}
