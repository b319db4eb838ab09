package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/termchat/middleware"
)

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func TestInputValidator(t *testing.T) {
	t.Run("valid input passes through", func(t *testing.T) {
		validator := NewInputValidator(NotBlank)

		ctx := &middleware.Context{Input: "list files"}
		executed := false

		err := validator.Execute(ctx, func(c *middleware.Context) error {
			executed = true
			return nil
		})

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !executed {
			t.Error("handler was not executed")
		}
	})

	t.Run("blank input returns error", func(t *testing.T) {
		validator := NewInputValidator(NotBlank)

		ctx := &middleware.Context{Input: "   "}
		executed := false

		err := validator.Execute(ctx, func(c *middleware.Context) error {
			executed = true
			return nil
		})

		if !errors.Is(err, middleware.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if executed {
			t.Error("handler should not be executed for invalid input")
		}
	})

	t.Run("nil validator accepts everything", func(t *testing.T) {
		validator := NewInputValidator(nil)
		if err := validator.Execute(&middleware.Context{}, func(c *middleware.Context) error { return nil }); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestMaxTokens(t *testing.T) {
	check := MaxTokens(wordCounter{}, 3)

	if err := check("one two three"); err != nil {
		t.Errorf("input at the limit should pass: %v", err)
	}
	if err := check("one two three four"); !errors.Is(err, middleware.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput over the limit, got %v", err)
	}
	if err := MaxTokens(nil, 1)("a b c"); err != nil {
		t.Errorf("nil counter should accept input: %v", err)
	}
	if err := MaxTokens(wordCounter{}, 0)("a b c"); err != nil {
		t.Errorf("zero limit should accept input: %v", err)
	}
}

func TestAll(t *testing.T) {
	check := All(NotBlank, nil, MaxTokens(wordCounter{}, 1))

	if err := check(""); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("expected blank failure first, got %v", err)
	}
	if err := check("a b"); err == nil || !strings.Contains(err.Error(), "limit") {
		t.Errorf("expected token failure, got %v", err)
	}
	if err := check("ok"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
