// Package utils provides common utility functions.
package utils

// MaskKey masks a credential for safe logging, showing the first 8 and
// last 4 characters. The proxy handles API keys on every request; logs
// must never carry them in full.
func MaskKey(key string) string {
	if key == "" {
		return "(empty)"
	}
	if len(key) < 16 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
