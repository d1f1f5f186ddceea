package security

import (
	"strings"
	"testing"
)

func TestCheckSecretKey(t *testing.T) {
	tests := []struct {
		name         string
		secret       string
		wantWarnings bool
		contains     string
	}{
		{
			"strong generated-looking key",
			"kJ8mN2pQ5tR7vX1zB4cE6gH9jL3nP8qS2uW5yA7bD0fG3hK6!@(x",
			false,
			"",
		},
		{
			"short key",
			"test secret key",
			true,
			"shorter than 50",
		},
		{
			"placeholder",
			"changeme",
			true,
			"placeholder",
		},
		{
			"long placeholder",
			"please-replace-this-with-a-real-secret-key-value-now",
			true,
			"placeholder",
		},
		{
			"low entropy",
			strings.Repeat("a", 60),
			true,
			"low entropy",
		},
		{
			"sequential",
			"abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzab",
			true,
			"sequential",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := CheckSecretKey(tt.secret)
			if (len(warnings) > 0) != tt.wantWarnings {
				t.Fatalf("CheckSecretKey() warnings = %v, wantWarnings %v", warnings, tt.wantWarnings)
			}
			if tt.contains == "" {
				return
			}
			found := false
			for _, w := range warnings {
				if strings.Contains(w, tt.contains) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("CheckSecretKey() warnings %v should contain %q", warnings, tt.contains)
			}
		})
	}
}

func TestGenerateSecretKey(t *testing.T) {
	for i := 0; i < 10; i++ {
		secret, err := GenerateSecretKey()
		if err != nil {
			t.Fatalf("GenerateSecretKey() error = %v", err)
		}

		if len(secret) != MinSecretKeyLength {
			t.Errorf("GenerateSecretKey() length = %d, want %d", len(secret), MinSecretKeyLength)
		}

		for _, c := range secret {
			if !strings.ContainsRune(secretKeyChars, c) {
				t.Errorf("GenerateSecretKey() produced character %q outside the alphabet", c)
			}
		}

		if entropy := calculateEntropy(secret); entropy < MinEntropy {
			t.Errorf("Generated secret has low entropy: %.2f < %.2f", entropy, MinEntropy)
		}
	}

	secrets := make(map[string]bool)
	for i := 0; i < 100; i++ {
		secret, err := GenerateSecretKey()
		if err != nil {
			t.Fatalf("GenerateSecretKey() error = %v", err)
		}
		if secrets[secret] {
			t.Errorf("GenerateSecretKey() generated duplicate secret")
		}
		secrets[secret] = true
	}
}

func TestCalculateEntropy(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		minExpected float64
		maxExpected float64
	}{
		{"empty string", "", 0.0, 0.0},
		{"single character repeated", "aaaaaaa", 0.0, 0.0},
		{"two characters alternating", "ababababab", 1.0, 1.0},
		{"all unique characters", "abcdefghij", 3.0, 4.0},
		{"random-looking string", "kJ8mN2pQ5tR7vX1zB4cE6gH9jL3nP8qS", 4.0, 6.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateEntropy(tt.input)
			if got < tt.minExpected || got > tt.maxExpected {
				t.Errorf("calculateEntropy() = %.2f, want between %.2f and %.2f", got, tt.minExpected, tt.maxExpected)
			}
		})
	}
}
