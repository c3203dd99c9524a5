package utils

import (
	"fmt"
	"strings"
)

// GenerateRateLimitKey creates a unique key for rate limiting
func GenerateRateLimitKey(ip, email, path string) string {
	return fmt.Sprintf("rl:%s:%s:%s", ip, strings.ToLower(email), path)
}

// EmailLocalPart returns the part of an email address before the @,
// used as a display-name fallback
func EmailLocalPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}
