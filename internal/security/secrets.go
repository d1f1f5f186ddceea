package security

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
)

const (
	// MinSecretKeyLength is the length NetBox asks for in SECRET_KEY.
	MinSecretKeyLength = 50

	// MinEntropy is the Shannon entropy below which a key is reported as weak.
	MinEntropy = 3.5

	// secretKeyChars matches the alphabet of NetBox's generate_secret_key.py.
	secretKeyChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*(-_=+)"
)

var placeholderSecrets = map[string]bool{
	"replace-with-secret": true,
	"secret":              true,
	"secret_key":          true,
	"topsecret":           true,
	"password":            true,
	"changeme":            true,
	"netbox":              true,
}

// CheckSecretKey returns human readable warnings for a weak secret key.
// An empty result means no weakness was detected. Weak keys are still
// accepted by the renderer; callers decide whether to surface the warnings.
func CheckSecretKey(secret string) []string {
	var warnings []string

	if len(secret) < MinSecretKeyLength {
		warnings = append(warnings, fmt.Sprintf("secret key shorter than %d characters (got %d)", MinSecretKeyLength, len(secret)))
	}

	lower := strings.ToLower(secret)
	if placeholderSecrets[lower] || strings.Contains(lower, "changeme") || strings.Contains(lower, "replace") {
		warnings = append(warnings, "secret key appears to be a placeholder value")
	}

	if entropy := calculateEntropy(secret); entropy < MinEntropy {
		warnings = append(warnings, fmt.Sprintf("secret key has low entropy (%.2f < %.2f)", entropy, MinEntropy))
	}

	if isSequential(secret) {
		warnings = append(warnings, "secret key is mostly sequential characters")
	}

	return warnings
}

// GenerateSecretKey creates a random secret key of MinSecretKeyLength
// characters suitable for SECRET_KEY.
func GenerateSecretKey() (string, error) {
	max := big.NewInt(int64(len(secretKeyChars)))
	var b strings.Builder
	b.Grow(MinSecretKeyLength)
	for i := 0; i < MinSecretKeyLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random secret: %w", err)
		}
		b.WriteByte(secretKeyChars[n.Int64()])
	}
	return b.String(), nil
}

// calculateEntropy computes the Shannon entropy of a string.
// Returns a value between 0 (completely predictable) and ~8 for byte strings.
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, c := range s {
		freq[c]++
	}

	// H = -Σ(p(x) * log2(p(x)))
	var entropy float64
	length := float64(len(s))

	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// isSequential checks if a string consists of sequential characters.
func isSequential(s string) bool {
	if len(s) < 4 {
		return false
	}

	sequential := 0
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1]+1 || s[i] == s[i-1]-1 {
			sequential++
		}
	}

	// More than 70% sequential is weak
	return float64(sequential) > float64(len(s))*0.7
}
