package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
	"github.com/ashimregmi/sathi/internal/model"
)

// Extractor converts conversation history into typed records via a model
// call. Every method returns ErrExtraction when the model's output cannot
// be parsed; callers decide how to recover.
type Extractor interface {
	Classify(ctx context.Context, history []model.Message) (IntentDecision, error)
	ExtractReminder(ctx context.Context, history []model.Message, now time.Time) (ReminderFields, error)
	ExtractCreative(ctx context.Context, history []model.Message) (CreativeFields, error)
	ExtractTravel(ctx context.Context, history []model.Message, now time.Time) (TravelFields, error)
}

// Completer is the slice of the model router the extractor needs.
type Completer interface {
	Complete(ctx context.Context, req model.Request) (string, error)
}

type LLMExtractor struct {
	completer       Completer
	classifierModel string
	extractorModel  string
}

func NewLLMExtractor(completer Completer, classifierModel, extractorModel string) *LLMExtractor {
	return &LLMExtractor{
		completer:       completer,
		classifierModel: classifierModel,
		extractorModel:  extractorModel,
	}
}

const classifierSystem = `You are an intent classifier for a personal life admin assistant.

Classify the latest user message into ONE of:

travel_planning - planning or researching trips, flights, hotels, weather, destination info,
  packing advice, itineraries, "what to do in X", budget for travel.

reminder - user wants to be reminded, notified, or alerted at some time via WhatsApp.
  Examples: "Remind me to call mom at 5pm", "Alert me tomorrow morning".

creative - generating images, moodboards, visual concepts, aesthetic exploration.

unknown - anything that doesn't fit the above, or is a greeting/meta question.

IMPORTANT: Look at the FULL conversation history for context. A short follow-up like
"yes go ahead" or "what about hotels?" belongs to the same intent as the prior messages.

Respond with valid JSON only:
{"intent": "travel_planning", "confidence": 0.95, "reasoning": "User is asking about flights"}`

type intentPayload struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (e *LLMExtractor) Classify(ctx context.Context, history []model.Message) (IntentDecision, error) {
	raw, err := e.completer.Complete(ctx, model.Request{
		Model:    e.classifierModel,
		System:   classifierSystem,
		Messages: history,
	})
	if err != nil {
		return IntentDecision{}, sathiErrors.Wrap(err, "classify intent")
	}

	var payload intentPayload
	if err := unmarshalModelJSON(raw, &payload); err != nil {
		return IntentDecision{}, err
	}
	if payload.Intent == "" {
		return IntentDecision{}, sathiErrors.Extraction("classifier returned no intent label")
	}

	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return IntentDecision{
		Intent:     ParseIntent(payload.Intent),
		Confidence: confidence,
		Reasoning:  payload.Reasoning,
	}, nil
}

const reminderSystemTemplate = `You are extracting reminder details from a user's message.

Today (Nepal time, UTC+5:45): %s

Extract:
- reminder_message: concise WhatsApp-ready text of what to remind about
- scheduled_for: ISO datetime (YYYY-MM-DDTHH:MM:SS) if a specific time was given,
  or "now" for immediate send (also treat "within", "until" as immediate, e.g. "within 2 minutes")
- to_number: phone number if the user specified one (international format, no +), else null
- repeat_rule: "daily", "weekly", or "none"

Respond with valid JSON only.`

func (e *LLMExtractor) ExtractReminder(ctx context.Context, history []model.Message, now time.Time) (ReminderFields, error) {
	system := fmt.Sprintf(reminderSystemTemplate, now.Format("2006-01-02 15:04 (Monday)"))

	raw, err := e.completer.Complete(ctx, model.Request{
		Model:    e.extractorModel,
		System:   system,
		Messages: history,
	})
	if err != nil {
		return ReminderFields{}, sathiErrors.Wrap(err, "extract reminder fields")
	}

	var fields ReminderFields
	if err := unmarshalModelJSON(raw, &fields); err != nil {
		return ReminderFields{}, err
	}
	if fields.Message == "" {
		return ReminderFields{}, sathiErrors.Extraction("extractor returned no reminder message")
	}
	if fields.ScheduledFor == "" {
		fields.ScheduledFor = TimeNow
	}
	if fields.RepeatRule == "" {
		fields.RepeatRule = RepeatNone
	}

	return fields, nil
}

const creativeSystem = `You are extracting image generation details from a user's message.

Extract:
- visual_prompt: a rich, cinematically descriptive prompt ready for image generation.
  Expand the user's request into lighting, mood, setting and style details.
- count: number of images to generate, 1 or 2. Default 1.

Respond with valid JSON only.`

func (e *LLMExtractor) ExtractCreative(ctx context.Context, history []model.Message) (CreativeFields, error) {
	raw, err := e.completer.Complete(ctx, model.Request{
		Model:    e.extractorModel,
		System:   creativeSystem,
		Messages: history,
	})
	if err != nil {
		return CreativeFields{}, sathiErrors.Wrap(err, "extract creative fields")
	}

	var fields CreativeFields
	if err := unmarshalModelJSON(raw, &fields); err != nil {
		return CreativeFields{}, err
	}
	if fields.VisualPrompt == "" {
		return CreativeFields{}, sathiErrors.Extraction("extractor returned no visual prompt")
	}
	if fields.Count < 1 {
		fields.Count = 1
	}
	if fields.Count > 2 {
		fields.Count = 2
	}

	return fields, nil
}

const travelSystemTemplate = `You are extracting a weather lookup from a travel question.

Today: %s

Extract:
- location: the city the user is asking about, e.g. "Pokhara", "Kathmandu"
- start_date: forecast start date as YYYY-MM-DD; resolve phrases like "tomorrow"
  relative to today. Empty string if no date was mentioned.

Respond with valid JSON only.`

func (e *LLMExtractor) ExtractTravel(ctx context.Context, history []model.Message, now time.Time) (TravelFields, error) {
	system := fmt.Sprintf(travelSystemTemplate, now.Format("2006-01-02 (Monday)"))

	raw, err := e.completer.Complete(ctx, model.Request{
		Model:    e.extractorModel,
		System:   system,
		Messages: history,
	})
	if err != nil {
		return TravelFields{}, sathiErrors.Wrap(err, "extract travel fields")
	}

	var fields TravelFields
	if err := unmarshalModelJSON(raw, &fields); err != nil {
		return TravelFields{}, err
	}
	if fields.Location == "" {
		return TravelFields{}, sathiErrors.Extraction("extractor returned no location")
	}

	return fields, nil
}

// unmarshalModelJSON parses model output into v, tolerating fenced or
// prose-wrapped JSON. Failures are ErrExtraction.
func unmarshalModelJSON(raw string, v interface{}) error {
	normalized := cleanModelJSON(raw)

	if err := json.Unmarshal([]byte(normalized), v); err == nil {
		return nil
	}

	if extracted := extractBalancedObject(normalized); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), v); err == nil {
			return nil
		}
	}

	return sathiErrors.Extraction("model output is not valid JSON")
}
