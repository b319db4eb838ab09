package config

import (
	"errors"
	"testing"
	"time"
)

func TestValidatorRequireNonEmpty(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{name: "non-empty value", value: "valid", wantError: false},
		{name: "empty value", value: "", wantError: true},
		{name: "blank value", value: "   ", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequireNonEmpty("test_field", tt.value)
			if v.HasErrors() != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantError)
			}
		})
	}
}

func TestValidatorNumericRules(t *testing.T) {
	tests := []struct {
		name      string
		apply     func(v *Validator)
		wantError bool
	}{
		{name: "positive ok", apply: func(v *Validator) { v.RequirePositive("f", 1) }},
		{name: "positive zero", apply: func(v *Validator) { v.RequirePositive("f", 0) }, wantError: true},
		{name: "non-negative zero", apply: func(v *Validator) { v.RequireNonNegative("f", 0) }},
		{name: "non-negative below", apply: func(v *Validator) { v.RequireNonNegative("f", -1) }, wantError: true},
		{name: "duration ok", apply: func(v *Validator) { v.RequireNonNegativeDuration("f", time.Second) }},
		{name: "duration negative", apply: func(v *Validator) { v.RequireNonNegativeDuration("f", -time.Second) }, wantError: true},
		{name: "range inside", apply: func(v *Validator) { v.ValidateRange("f", 5, 1, 10) }},
		{name: "range outside", apply: func(v *Validator) { v.ValidateRange("f", 11, 1, 10) }, wantError: true},
		{name: "float inside", apply: func(v *Validator) { v.ValidateFloatRange("f", 0.7, 0, 2) }},
		{name: "float outside", apply: func(v *Validator) { v.ValidateFloatRange("f", 2.5, 0, 2) }, wantError: true},
		{name: "db number ok", apply: func(v *Validator) { v.ValidateDBNumber("f", 15) }},
		{name: "db number high", apply: func(v *Validator) { v.ValidateDBNumber("f", 16) }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			tt.apply(v)
			if v.HasErrors() != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantError)
			}
		})
	}
}

func TestValidatorValidateOneOf(t *testing.T) {
	v := NewValidator()
	v.ValidateOneOf("backend", "redis", "memory", "redis")
	if v.HasErrors() {
		t.Errorf("unexpected error: %v", v.Error())
	}
	v.ValidateOneOf("backend", "etcd", "memory", "redis")
	if !v.HasErrors() {
		t.Error("expected error for value outside the allowed set")
	}
}

func TestValidatorMultipleErrors(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("field1", "")
	v.RequirePositive("field2", 0)
	v.ValidateRange("field3", 99999, 1, 65535)

	if len(v.Errors()) != 3 {
		t.Fatalf("Errors() count = %d, want 3", len(v.Errors()))
	}

	err := v.Error()
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Field != "field1" {
		t.Errorf("expected joined error to expose the first ValidationError, got %v", err)
	}
}

func TestValidatorNoErrors(t *testing.T) {
	if err := NewValidator().Error(); err != nil {
		t.Errorf("Error() = %v, want nil", err)
	}
}
