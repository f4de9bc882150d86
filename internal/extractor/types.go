package extractor

// Intent is the closed set of conversation intents.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentTravel
	IntentReminder
	IntentCreative
)

func (i Intent) String() string {
	switch i {
	case IntentTravel:
		return "travel_planning"
	case IntentReminder:
		return "reminder"
	case IntentCreative:
		return "creative"
	default:
		return "unknown"
	}
}

// ParseIntent maps a label to an Intent. Anything outside the closed set,
// including future labels a model might invent, maps to IntentUnknown.
func ParseIntent(label string) Intent {
	switch label {
	case "travel_planning":
		return IntentTravel
	case "reminder":
		return IntentReminder
	case "creative":
		return IntentCreative
	default:
		return IntentUnknown
	}
}

// IntentDecision is the classifier's structured output. Produced fresh each
// turn; only the intent label outlives the turn (as the session's last intent).
type IntentDecision struct {
	Intent     Intent
	Confidence float64
	Reasoning  string
}

// Recurrence labels emitted by the reminder extractor.
const (
	RepeatNone   = "none"
	RepeatDaily  = "daily"
	RepeatWeekly = "weekly"
)

// TimeNow is the sentinel time expression meaning "send immediately".
const TimeNow = "now"

// ReminderFields is the structured output for the reminder intent.
type ReminderFields struct {
	// Message is the WhatsApp-ready reminder text, capped at the channel limit.
	Message string `json:"reminder_message"`
	// ScheduledFor is either an ISO timestamp ("2006-01-02T15:04:05") or "now".
	ScheduledFor string `json:"scheduled_for"`
	// ToNumber is an optional recipient override, international format without "+".
	ToNumber string `json:"to_number"`
	// RepeatRule is "none", "daily" or "weekly".
	RepeatRule string `json:"repeat_rule"`
}

// CreativeFields is the structured output for the creative intent.
type CreativeFields struct {
	VisualPrompt string `json:"visual_prompt"`
	Count        int    `json:"count"`
}

// TravelFields is the structured output for the travel intent's weather path.
type TravelFields struct {
	Location  string `json:"location"`
	StartDate string `json:"start_date"` // YYYY-MM-DD, may be empty
}
