// Package permissions checks OS privacy permissions needed for capture.
package permissions

import "fmt"

// Status mirrors the AVFoundation authorization status.
type Status int

const (
	NotDetermined Status = 0
	Restricted    Status = 1
	Denied        Status = 2
	Authorized    Status = 3
)

func (s Status) String() string {
	switch s {
	case NotDetermined:
		return "not determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DeniedError reports that microphone access is not granted.
type DeniedError struct {
	Status Status
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("microphone permission %s: allow StreamVox in System Settings → Privacy & Security → Microphone", e.Status)
}
