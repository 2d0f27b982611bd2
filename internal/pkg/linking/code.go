package linking

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Alphabet without easily confused characters (0/O, 1/I/L) since users type
// these codes by hand from a Discord message.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	// CodeLength is the number of characters in an issued verification code.
	CodeLength = 8
	// CodeTTL is how long an issued code stays consumable.
	CodeTTL = 10 * time.Minute
)

// GenerateCode creates a cryptographically secure random verification code.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 217 is the largest multiple of 31 below 256.
	const maxRandomByte = 217

	code := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			code[written] = codeAlphabet[int(b)%len(codeAlphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(code), nil
}
