package validator

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/termchat/middleware"
)

// ValidatorFunc validates input
type ValidatorFunc func(string) error

// TokenCounter counts model tokens in a piece of text.
type TokenCounter interface {
	CountTokens(text string) int
}

// InputValidator rejects requests whose input fails validation
type InputValidator struct {
	validator ValidatorFunc
}

// NewInputValidator creates an input validation middleware
func NewInputValidator(validator ValidatorFunc) *InputValidator {
	return &InputValidator{validator: validator}
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the input
func (m *InputValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.validator != nil {
		if err := m.validator(ctx.Input); err != nil {
			return err
		}
	}
	return next(ctx)
}

// NotBlank rejects empty or whitespace-only input.
func NotBlank(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input is empty: %w", middleware.ErrInvalidInput)
	}
	return nil
}

// MaxTokens rejects input longer than limit tokens as counted by counter.
// A nil counter or non-positive limit accepts everything.
func MaxTokens(counter TokenCounter, limit int) ValidatorFunc {
	return func(input string) error {
		if counter == nil || limit <= 0 {
			return nil
		}
		if n := counter.CountTokens(input); n > limit {
			return fmt.Errorf("input has %d tokens, limit is %d: %w", n, limit, middleware.ErrInvalidInput)
		}
		return nil
	}
}

// All combines validators, returning the first failure.
func All(validators ...ValidatorFunc) ValidatorFunc {
	return func(input string) error {
		for _, v := range validators {
			if v == nil {
				continue
			}
			if err := v(input); err != nil {
				return err
			}
		}
		return nil
	}
}
