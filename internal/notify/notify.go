// Package notify shows desktop notifications for failures the user can
// retry.
package notify

import (
	"errors"
	"fmt"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"github.com/lucasmsqt/StreamVox/internal/events"
	"github.com/lucasmsqt/StreamVox/internal/session"
)

const appName = "StreamVox"

// Notifier shows a notification to the user.
type Notifier interface {
	Notify(title, message string) error
}

// Toast sends notifications through the platform notification service.
type Toast struct {
	icon string
}

// NewToast creates a desktop notifier. icon may be empty.
func NewToast(icon string) *Toast {
	return &Toast{icon: icon}
}

func (t *Toast) Notify(title, message string) error {
	if err := beeep.Notify(title, message, t.icon); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(string, string) error { return nil }

// Forward subscribes n to notices on bus and returns the unsubscribe
// function.
func Forward(bus *events.Bus, n Notifier, log zerolog.Logger) func() {
	log = log.With().Str("component", "notify").Logger()
	return bus.Subscribe(func(e events.Notice) {
		title, message := Format(e)
		if err := n.Notify(title, message); err != nil {
			log.Warn().Err(err).Str("kind", string(e.Kind)).Msg("Failed to show notification")
		}
	})
}

// Format renders a notice as a notification title and body.
func Format(e events.Notice) (title, message string) {
	switch e.Kind {
	case events.NoticeDeviceFetch:
		title = "Couldn't load audio devices"
	case events.NoticeValidation:
		title = "Can't start capture"
		var ve *session.ValidationError
		if errors.As(e.Err, &ve) {
			return appName + ": " + title, ve.Reason
		}
	case events.NoticeCaptureStart:
		title = "Capture failed to start"
	case events.NoticeCaptureStop:
		title = "Capture failed to stop"
		if e.Err != nil {
			return appName + ": " + title, e.Err.Error() + ". Try stopping again."
		}
	default:
		title = "Something went wrong"
	}

	message = "Please try again."
	if e.Err != nil {
		message = e.Err.Error()
	}
	return appName + ": " + title, message
}
