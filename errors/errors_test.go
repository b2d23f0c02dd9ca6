package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestProcTrackError(t *testing.T) {
	err := New(ErrCodeNotFound, "group not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}

	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodePersistenceFailed, "insert failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	if !Is(wrapped, ErrCodePersistenceFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	detailed := err.WithDetail("kind", "group").WithDetail("id", 7)
	if detailed.Details["kind"] != "group" {
		t.Error("WithDetail should add details")
	}
}

func TestIsThroughFmtWrapping(t *testing.T) {
	inner := MissingDependency("wmctrl", "apt install wmctrl")
	outer := fmt.Errorf("watcher preflight: %w", inner)

	if !Is(outer, ErrCodeMissingDependency) {
		t.Error("Is should see codes through fmt.Errorf wrapping")
	}
	if GetCode(outer) != ErrCodeMissingDependency {
		t.Errorf("expected code %s, got %s", ErrCodeMissingDependency, GetCode(outer))
	}
}

func TestIsThroughJoin(t *testing.T) {
	joined := stderrors.Join(nil, fmt.Errorf("plain"), PersistenceFailed("open session", fmt.Errorf("disk full")))

	if !Is(joined, ErrCodePersistenceFailed) {
		t.Error("Is should search every joined error")
	}
	if Is(joined, ErrCodeConflict) {
		t.Error("Is should not match codes absent from the join")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"platform unsupported", PlatformUnsupported("plan9"), true},
		{"missing dependency", MissingDependency("powershell", ""), true},
		{"collection failed", CollectionFailed("wmctrl -lp", fmt.Errorf("exit 1")), false},
		{"invalid pattern", InvalidPattern(3, "(", fmt.Errorf("missing )")), false},
		{"persistence failed", PersistenceFailed("open session", fmt.Errorf("locked")), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	err := NotFound("rule", int64(12))
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Details["kind"] != "rule" {
		t.Error("NotFound should include kind detail")
	}

	err = Conflict("group", "Games")
	if err.Code != ErrCodeConflict {
		t.Errorf("expected code %s, got %s", ErrCodeConflict, err.Code)
	}
	if err.Details["key"] != "Games" {
		t.Error("Conflict should include key detail")
	}

	err = MissingDependency("wmctrl", "")
	if _, ok := err.Details["hint"]; ok {
		t.Error("MissingDependency should omit an empty hint")
	}
}
