package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
	"github.com/ashimregmi/sathi/internal/extractor"
	"github.com/ashimregmi/sathi/internal/model"
	"github.com/ashimregmi/sathi/internal/scheduler"
	"github.com/ashimregmi/sathi/internal/session"
	"github.com/ashimregmi/sathi/internal/tool"
)

func (e *Engine) handleReminder(ctx context.Context, meta *session.Meta, history []model.Message) string {
	fields, err := e.extractor.ExtractReminder(ctx, history, time.Now())
	if err != nil {
		slog.Warn("Reminder extraction failed", "session", meta.ID, "error", err)
		return "I couldn't work out what to remind you about. Could you rephrase, e.g. \"Remind me to call mom tomorrow at 5pm\"?"
	}

	if strings.TrimSpace(fields.Message) == "" {
		return "What should the reminder say? Give me the message and a time."
	}

	recipient := e.resolvePhone(meta, fields.ToNumber)
	if recipient == "" {
		return "I need a WhatsApp number to deliver reminders. Set one with /phone <number> (international format, no +)."
	}

	now := time.Now()
	fireAt, immediate := resolveFireTime(fields.ScheduledFor, now)
	recurrence := scheduler.ParseRecurrence(fields.RepeatRule)

	// An immediate reminder is exactly one Notifier call, never a stored
	// job; a recurrence tag on it is dropped.
	if immediate {
		result := e.notifier.Send(ctx, recipient, fields.Message)
		if !result.Delivered() {
			return describeDeliveryFailure(result)
		}
		return fmt.Sprintf("Sent! Your reminder is on its way to %s.", recipient)
	}

	// A recurring reminder whose extracted time already passed today
	// starts at its next occurrence instead of firing straight away.
	if recurrence != scheduler.RecurrenceNone && !fireAt.After(now) {
		if next, ok := scheduler.NextAnchored(fireAt, recurrence, now); ok {
			fireAt = next
		}
	}

	job, err := scheduler.NewJob(recipient, fields.Message, fireAt, recurrence)
	if err != nil {
		if isCategory(err, sathiErrors.ErrValidation) {
			return "Something's missing from that reminder: " + err.Error()
		}
		slog.Error("Failed to build reminder job", "session", meta.ID, "error", err)
		return "Something went wrong on my side while setting that up. Please try again."
	}

	if err := e.scheduler.Schedule(job); err != nil {
		slog.Error("Failed to schedule reminder", "session", meta.ID, "job", job.ID, "error", err)
		return "I couldn't save that reminder. Please try again."
	}

	switch recurrence {
	case scheduler.RecurrenceDaily:
		return fmt.Sprintf("Done. I'll remind you daily at %s on %s, starting %s.",
			fireAt.Format("15:04"), recipient, formatFireTime(fireAt))
	case scheduler.RecurrenceWeekly:
		return fmt.Sprintf("Done. I'll remind you every %s at %s on %s, starting %s.",
			fireAt.Weekday(), fireAt.Format("15:04"), recipient, formatFireTime(fireAt))
	default:
		return fmt.Sprintf("Done. I'll remind you on %s via %s.", formatFireTime(fireAt), recipient)
	}
}

// resolveFireTime turns the extractor's time expression into an absolute
// time. The "now" sentinel and anything that fails to parse both mean
// immediate delivery; a bad timestamp must never block a reminder.
func resolveFireTime(expr string, now time.Time) (time.Time, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.EqualFold(expr, extractor.TimeNow) {
		return now, true
	}

	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, expr, time.Local); err == nil {
			return t, false
		}
	}

	slog.Warn("Unparseable reminder time, sending immediately", "expr", expr)
	return now, true
}

const travelChatSystem = `You are Sathi, a friendly travel planning assistant.
Answer the user's travel question conversationally and concisely.
You cannot book anything; suggest, compare and advise only.`

func (e *Engine) handleTravel(ctx context.Context, history []model.Message) string {
	fields, err := e.extractor.ExtractTravel(ctx, history, time.Now())
	if err != nil {
		return e.travelFallback(ctx, history)
	}

	weather, err := e.tools.Get(tool.CapabilityGetWeather)
	if err != nil {
		return "I can't check the weather right now (forecast tool unavailable), but I can still help you plan. What would you like to know about " + fields.Location + "?"
	}

	input, err := json.Marshal(map[string]string{
		"location":   fields.Location,
		"start_date": fields.StartDate,
		"end_date":   fields.StartDate,
	})
	if err != nil {
		return "Something went wrong preparing the forecast request. Please try again."
	}

	raw, err := weather.Execute(ctx, input)
	if err != nil {
		slog.Warn("Weather lookup failed", "location", fields.Location, "error", err)
		return "The forecast service didn't answer for " + fields.Location + ". Try again in a bit."
	}

	var out struct {
		Location string `json:"location"`
		Days     []struct {
			Date            string  `json:"date"`
			DayOfWeek       string  `json:"day_of_week"`
			TempMaxC        float64 `json:"temp_max_c"`
			TempMinC        float64 `json:"temp_min_c"`
			Condition       string  `json:"condition"`
			ChanceOfRainPct int     `json:"chance_of_rain_pct"`
		} `json:"days"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Error != "" {
		reason := out.Error
		if reason == "" {
			reason = "malformed forecast"
		}
		return fmt.Sprintf("I couldn't get a forecast for %s (%s).", fields.Location, reason)
	}
	if len(out.Days) == 0 {
		return "No forecast data came back for " + fields.Location + "."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weather for %s:\n", out.Location)
	for _, day := range out.Days {
		fmt.Fprintf(&b, "- %s (%s): %s, %.0f-%.0f°C, %d%% chance of rain\n",
			day.Date, day.DayOfWeek, day.Condition, day.TempMinC, day.TempMaxC, day.ChanceOfRainPct)
	}
	b.WriteString("Want me to set a packing reminder before you leave?")
	return b.String()
}

// travelFallback answers a travel question as free-form chat when no
// weather lookup could be extracted from it.
func (e *Engine) travelFallback(ctx context.Context, history []model.Message) string {
	if e.completer == nil || e.chatModel == "" {
		return "Happy to help plan a trip! Where are you headed, and when?"
	}

	reply, err := e.completer.Complete(ctx, model.Request{
		Model:    e.chatModel,
		System:   travelChatSystem,
		Messages: history,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		slog.Warn("Travel chat fallback failed", "error", err)
		return "Happy to help plan a trip! Where are you headed, and when?"
	}
	return strings.TrimSpace(reply)
}

func (e *Engine) handleCreative(ctx context.Context, history []model.Message) string {
	fields, err := e.extractor.ExtractCreative(ctx, history)
	if err != nil {
		return "Tell me what you'd like to see and I'll generate a moodboard, e.g. \"a cozy cabin in autumn\"."
	}

	images, err := e.tools.Get(tool.CapabilityGenerateImages)
	if err != nil {
		return "Image generation is unavailable right now. Try again later."
	}

	input, err := json.Marshal(map[string]interface{}{
		"prompt": fields.VisualPrompt,
		"count":  fields.Count,
	})
	if err != nil {
		return "Something went wrong preparing the image request. Please try again."
	}

	raw, err := images.Execute(ctx, input)
	if err != nil {
		slog.Warn("Image generation failed", "error", err)
		return "The image service didn't answer. Try again in a bit."
	}

	var out struct {
		Images []struct {
			ImageURL string `json:"image_url"`
		} `json:"images"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Error != "" {
		return "Image generation failed. Try a different description."
	}
	if len(out.Images) == 0 {
		return "The image service returned nothing. Try a different description."
	}

	var b strings.Builder
	b.WriteString("Here's your moodboard:\n")
	for _, img := range out.Images {
		b.WriteString("- " + img.ImageURL + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) handleUnknown() string {
	return strings.Join([]string{
		"I'm Sathi, your personal life admin assistant. I can:",
		"- Schedule WhatsApp reminders: \"Remind me to call mom tomorrow at 5pm\"",
		"- Help plan trips, with weather: \"What's the weather in Pokhara this weekend?\"",
		"- Generate moodboards: \"Show me ideas for a minimalist studio\"",
		"Type /help for commands.",
	}, "\n")
}
