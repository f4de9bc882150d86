package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
	"github.com/ashimregmi/sathi/internal/model"
)

type stubCompleter struct {
	response string
	err      error
	lastReq  model.Request
}

func (s *stubCompleter) Complete(ctx context.Context, req model.Request) (string, error) {
	s.lastReq = req
	return s.response, s.err
}

func TestParseIntentTotality(t *testing.T) {
	assert.Equal(t, IntentTravel, ParseIntent("travel_planning"))
	assert.Equal(t, IntentReminder, ParseIntent("reminder"))
	assert.Equal(t, IntentCreative, ParseIntent("creative"))
	assert.Equal(t, IntentUnknown, ParseIntent("unknown"))

	// Anything outside the closed set falls through to unknown.
	for _, label := range []string{"", "REMINDER", "shopping", "travel", "🎉"} {
		assert.Equal(t, IntentUnknown, ParseIntent(label), "label %q", label)
	}
}

func TestClassify(t *testing.T) {
	stub := &stubCompleter{response: `{"intent": "reminder", "confidence": 0.92, "reasoning": "wants an alert"}`}
	ex := NewLLMExtractor(stub, "classifier-model", "extractor-model")

	decision, err := ex.Classify(context.Background(), []model.Message{{Role: "user", Content: "remind me to stretch"}})
	require.NoError(t, err)

	assert.Equal(t, IntentReminder, decision.Intent)
	assert.InDelta(t, 0.92, decision.Confidence, 1e-9)
	assert.Equal(t, "wants an alert", decision.Reasoning)
	assert.Equal(t, "classifier-model", stub.lastReq.Model)
}

func TestClassifyFencedJSON(t *testing.T) {
	stub := &stubCompleter{response: "```json\n{\"intent\": \"creative\", \"confidence\": 1.4, \"reasoning\": \"moodboard\"}\n```"}
	ex := NewLLMExtractor(stub, "m", "m")

	decision, err := ex.Classify(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, IntentCreative, decision.Intent)
	// Confidence is clamped into [0,1].
	assert.Equal(t, 1.0, decision.Confidence)
}

func TestClassifyProseWrappedJSON(t *testing.T) {
	stub := &stubCompleter{response: `Sure! Here is the classification: {"intent": "travel_planning", "confidence": 0.8, "reasoning": "flights"} hope that helps`}
	ex := NewLLMExtractor(stub, "m", "m")

	decision, err := ex.Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, IntentTravel, decision.Intent)
}

func TestClassifyMalformedOutput(t *testing.T) {
	stub := &stubCompleter{response: "I think the user wants a reminder."}
	ex := NewLLMExtractor(stub, "m", "m")

	_, err := ex.Classify(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sathiErrors.ErrExtraction))
}

func TestExtractReminderDefaults(t *testing.T) {
	stub := &stubCompleter{response: `{"reminder_message": "call mom"}`}
	ex := NewLLMExtractor(stub, "m", "extractor-model")

	fields, err := ex.ExtractReminder(context.Background(), nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "call mom", fields.Message)
	assert.Equal(t, TimeNow, fields.ScheduledFor)
	assert.Equal(t, RepeatNone, fields.RepeatRule)
	assert.Empty(t, fields.ToNumber)
	assert.Equal(t, "extractor-model", stub.lastReq.Model)
}

func TestExtractReminderFull(t *testing.T) {
	stub := &stubCompleter{response: `{"reminder_message": "stretch", "scheduled_for": "2026-09-01T07:00:00", "to_number": "9779812345678", "repeat_rule": "daily"}`}
	ex := NewLLMExtractor(stub, "m", "m")

	fields, err := ex.ExtractReminder(context.Background(), nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "stretch", fields.Message)
	assert.Equal(t, "2026-09-01T07:00:00", fields.ScheduledFor)
	assert.Equal(t, "9779812345678", fields.ToNumber)
	assert.Equal(t, RepeatDaily, fields.RepeatRule)
}

func TestExtractReminderEmptyMessage(t *testing.T) {
	stub := &stubCompleter{response: `{"scheduled_for": "now"}`}
	ex := NewLLMExtractor(stub, "m", "m")

	_, err := ex.ExtractReminder(context.Background(), nil, time.Now())
	assert.True(t, errors.Is(err, sathiErrors.ErrExtraction))
}

func TestExtractCreativeClampsCount(t *testing.T) {
	stub := &stubCompleter{response: `{"visual_prompt": "misty himalayan sunrise", "count": 9}`}
	ex := NewLLMExtractor(stub, "m", "m")

	fields, err := ex.ExtractCreative(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "misty himalayan sunrise", fields.VisualPrompt)
	assert.Equal(t, 2, fields.Count)
}

func TestExtractTravel(t *testing.T) {
	stub := &stubCompleter{response: `{"location": "Pokhara", "start_date": "2026-08-31"}`}
	ex := NewLLMExtractor(stub, "m", "m")

	fields, err := ex.ExtractTravel(context.Background(), nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "Pokhara", fields.Location)
	assert.Equal(t, "2026-08-31", fields.StartDate)
}

func TestExtractBalancedObject(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractBalancedObject(`noise {"a": 1} trailing`))
	assert.Equal(t, `{"a": {"b": "}"}}`, extractBalancedObject(`{"a": {"b": "}"}}`))
	assert.Equal(t, "", extractBalancedObject("no json here"))
	assert.Equal(t, "", extractBalancedObject("{unclosed"))
}
