package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Message(t *testing.T) {
	err := &Error{Code: "TEST", Message: "something broke"}
	if !strings.Contains(err.Error(), "TEST") {
		t.Errorf("error string should contain code, got %q", err.Error())
	}
}

func TestWrapError_PreservesCode(t *testing.T) {
	cause := fmt.Errorf("stop_loss_threshold = 1.5")
	err := WrapError(ErrConfigInvalid, cause)

	if !errors.Is(err, ErrConfigInvalid) {
		t.Error("wrapped error should match its base via errors.Is")
	}
	if !strings.Contains(err.Error(), "1.5") {
		t.Errorf("wrapped error should carry cause detail, got %q", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapError(ErrEmptyHorizon, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause through Unwrap")
	}
}

func TestError_IsDistinguishesCodes(t *testing.T) {
	if errors.Is(ErrEmptyHorizon, ErrConfigInvalid) {
		t.Error("different codes must not match")
	}
}
