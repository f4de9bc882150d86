package builtin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppToolExecute_Sent(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.123"}]}`)
	}))
	defer server.Close()

	tool := NewWhatsAppTool(server.URL, "555000", "token-abc", 5*time.Second)
	tool.Client = server.Client()

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"to_number":"9779812345678","body":"Reminder: call mom"}`))
	require.NoError(t, err)

	var out whatsAppOutput
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "sent", out.Status)
	assert.Equal(t, "wamid.123", out.MessageID)
	assert.Equal(t, "/555000/messages", gotPath)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, "9779812345678", gotPayload["to"])
}

func TestWhatsAppToolExecute_TruncatesLongBody(t *testing.T) {
	var sentBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text struct {
				Body string `json:"body"`
			} `json:"text"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		sentBody = payload.Text.Body
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.456"}]}`)
	}))
	defer server.Close()

	tool := NewWhatsAppTool(server.URL, "555000", "token", 5*time.Second)
	tool.Client = server.Client()

	long := strings.Repeat("x", maxWhatsAppBodyChars+500)
	input, _ := json.Marshal(whatsAppInput{ToNumber: "977981", Body: long})

	_, err := tool.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, sentBody, maxWhatsAppBodyChars)
}

func TestTruncateBodyKeepsRunesIntact(t *testing.T) {
	assert.Equal(t, "short", truncateBody("short", 10))

	// "é" is two bytes; a cut at 5 would land mid-rune.
	got := truncateBody("abcdé", 5)
	assert.Equal(t, "abcd", got)
	assert.True(t, utf8.ValidString(got))

	// A long multi-byte body must never end in a torn rune.
	long := strings.Repeat("नमस्ते", maxWhatsAppBodyChars)
	got = truncateBody(long, maxWhatsAppBodyChars)
	assert.LessOrEqual(t, len(got), maxWhatsAppBodyChars)
	assert.True(t, utf8.ValidString(got))
}

func TestWhatsAppToolExecute_ProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad token"}}`)
	}))
	defer server.Close()

	tool := NewWhatsAppTool(server.URL, "555000", "token", 5*time.Second)
	tool.Client = server.Client()

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"to_number":"977981","body":"hi"}`))
	require.NoError(t, err)

	var out whatsAppOutput
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "error", out.Status)
	assert.Contains(t, out.Error, "HTTP 401")
}

func TestWhatsAppToolExecute_MissingFields(t *testing.T) {
	tool := NewWhatsAppTool("http://unused", "555000", "token", time.Second)

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"body":"no recipient"}`))
	require.NoError(t, err)

	var out whatsAppOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "error", out.Status)
	assert.Contains(t, out.Error, "to_number")
}
