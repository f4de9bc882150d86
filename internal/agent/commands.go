package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/shlex"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
	"github.com/ashimregmi/sathi/internal/session"
)

var phonePattern = regexp.MustCompile(`^[0-9]{8,15}$`)

// handleCommand services slash commands without a model round trip.
func (e *Engine) handleCommand(ctx context.Context, meta *session.Meta, text string) string {
	parts, err := shlex.Split(text)
	if err != nil || len(parts) == 0 {
		return "I couldn't parse that command. Type /help for the list."
	}

	switch parts[0] {
	case "/help":
		return e.commandHelp()
	case "/phone":
		return e.commandPhone(meta, parts[1:])
	case "/reminders":
		return e.commandReminders(meta)
	case "/cancel":
		return e.commandCancel(parts[1:])
	case "/reset":
		return e.commandReset(meta)
	default:
		return fmt.Sprintf("Unknown command %s. Type /help for the list.", parts[0])
	}
}

func (e *Engine) commandHelp() string {
	return strings.Join([]string{
		"Commands:",
		"/phone <number>  set your WhatsApp delivery number (international format, no +)",
		"/reminders       list your scheduled reminders",
		"/cancel <id>     cancel a reminder by id",
		"/reset           start the conversation over (keeps your number)",
		"/help            this message",
	}, "\n")
}

func (e *Engine) commandPhone(meta *session.Meta, args []string) string {
	if len(args) == 0 {
		if meta.Phone != "" {
			return "Your delivery number is " + meta.Phone + "."
		}
		return "No delivery number set. Use /phone <number>."
	}

	number := strings.TrimPrefix(strings.TrimSpace(args[0]), "+")
	if !phonePattern.MatchString(number) {
		return "That doesn't look like a phone number. Use digits only, international format without +, e.g. /phone 9779812345678."
	}

	meta.Phone = number
	if err := e.sessions.Save(*meta); err != nil {
		slog.Error("Failed to save phone", "session", meta.ID, "error", err)
		return "I couldn't save that number. Please try again."
	}
	return "Got it. Reminders will go to " + number + "."
}

func (e *Engine) commandReminders(meta *session.Meta) string {
	phone := e.resolvePhone(meta, "")
	jobs := e.scheduler.Jobs(phone)
	if len(jobs) == 0 {
		return "You have no scheduled reminders."
	}

	var b strings.Builder
	b.WriteString("Your reminders:\n")
	for _, job := range jobs {
		line := fmt.Sprintf("- [%s] %q on %s", job.ID, job.Message, formatFireTime(job.FireAt))
		if job.Recurring() {
			line += " (" + string(job.Recurrence) + ")"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("Cancel one with /cancel <id>.")
	return b.String()
}

func (e *Engine) commandCancel(args []string) string {
	if len(args) == 0 {
		return "Which one? Run /reminders to list ids, then /cancel <id>."
	}

	id := args[0]
	if err := e.scheduler.Cancel(id); err != nil {
		if sathiErrors.IsCategory(err, sathiErrors.ErrNotFound) {
			return "No reminder with id " + id + ". Check /reminders."
		}
		slog.Error("Failed to cancel reminder", "job", id, "error", err)
		return "I couldn't cancel that reminder. Please try again."
	}
	return "Cancelled " + id + "."
}

func (e *Engine) commandReset(meta *session.Meta) string {
	if err := e.sessions.Reset(meta.ID); err != nil {
		slog.Error("Failed to reset session", "session", meta.ID, "error", err)
		return "I couldn't reset the conversation. Please try again."
	}
	return "Fresh start! Your delivery number is kept."
}
