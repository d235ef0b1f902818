package validation

import (
	"testing"
)

func TestIsValidID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"deal_a1b2c3d4e5f60718293a4b5c", true},
		{"ovr_0123456789abcdef01234567", true},
		{"app_deadbeefcafe", true},

		// Invalid cases
		{"a1b2c3d4e5f60718293a4b5c", false},       // No prefix
		{"deal-a1b2c3d4e5f60718293a4b5c", false},  // Wrong separator
		{"deal_A1B2C3D4E5F60718293A4B", false},    // Uppercase hex
		{"deal_xyz", false},                       // Non-hex, too short
		{"verylongprefix_a1b2c3d4e5f607", false},  // Prefix too long
		{"deal_", false},
		{"", false},
	}

	for _, tc := range tests {
		result := IsValidID(tc.id)
		if result != tc.valid {
			t.Errorf("IsValidID(%q) = %v, want %v", tc.id, result, tc.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	// Test valid input
	errors := Validate(
		Required("memberId", "mem_a1b2c3d4e5f60718"),
		OneOf("priority", "high", "low", "normal", "high", "critical"),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Test invalid input
	errors = Validate(
		Required("memberId", ""),
		OneOf("priority", "urgent", "low", "normal", "high", "critical"),
	)
	if len(errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errors))
	}
}

func TestMinLength(t *testing.T) {
	// At floor
	err := MinLength("justification", "exactly-ten", 11)()
	if err != nil {
		t.Error("Expected no error for string at minimum")
	}

	// Below floor
	err = MinLength("justification", "short", 50)()
	if err == nil {
		t.Error("Expected error for string below minimum")
	}

	// Whitespace padding does not count toward the minimum
	err = MinLength("justification", "short                                               ", 50)()
	if err == nil {
		t.Error("Expected error for padded string below minimum")
	}
}

func TestOneOf(t *testing.T) {
	// Empty value passes (Required handles presence)
	if err := OneOf("priority", "", "low", "high")(); err != nil {
		t.Error("Expected empty value to pass OneOf")
	}

	if err := OneOf("priority", "low", "low", "high")(); err != nil {
		t.Error("Expected allowed value to pass")
	}

	if err := OneOf("priority", "medium", "low", "high")(); err == nil {
		t.Error("Expected disallowed value to fail")
	}
}

func TestMaxLength(t *testing.T) {
	// Under limit
	err := MaxLength("field", "hello", 10)()
	if err != nil {
		t.Error("Expected no error for string under limit")
	}

	// At limit
	err = MaxLength("field", "hello", 5)()
	if err != nil {
		t.Error("Expected no error for string at limit")
	}

	// Over limit
	err = MaxLength("field", "hello world", 5)()
	if err == nil {
		t.Error("Expected error for string over limit")
	}
}
