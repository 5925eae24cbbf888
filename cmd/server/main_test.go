package main

import (
	"testing"

	"zaypos/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", AdminPIN: "123456"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", AdminPIN: "739154"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidatePINStrength(t *testing.T) {
	for _, weak := range []string{"123456", "999999", "987654", "112233"} {
		if err := validatePINStrength(weak); err == nil {
			t.Fatalf("expected %q to be rejected", weak)
		}
	}
	if err := validatePINStrength("847291"); err != nil {
		t.Fatalf("expected random PIN to pass, got %v", err)
	}
}
