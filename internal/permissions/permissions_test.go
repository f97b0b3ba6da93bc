package permissions

import (
	"errors"
	"strings"
	"testing"
)

func TestDeniedError(t *testing.T) {
	var err error = &DeniedError{Status: Denied}

	var de *DeniedError
	if !errors.As(err, &de) {
		t.Fatal("expected DeniedError")
	}
	if !strings.Contains(err.Error(), "denied") {
		t.Errorf("message should name the status: %q", err.Error())
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{NotDetermined, "not determined"},
		{Restricted, "restricted"},
		{Denied, "denied"},
		{Authorized, "authorized"},
		{Status(9), "status(9)"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
