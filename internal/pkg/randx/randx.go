/*
Package randx generates identifiers from cryptographically secure randomness.

It produces the Base62 RTM user ids handed to anonymous viewers and the UUIDs
that label token issuances in logs and the audit table.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// RTMUserIDPrefix marks user ids generated by the server.
	RTMUserIDPrefix = "user_"

	// RTMUserIDRawLength is the number of Base62 characters after the prefix.
	RTMUserIDRawLength = 10
)

var base62Len = big.NewInt(int64(len(Base62Chars)))

func base62(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		sb.WriteByte(Base62Chars[num.Int64()])
	}
	return sb.String(), nil
}

// RTMUserID generates a signaling user id for a client that did not bring one.
func RTMUserID() (string, error) {
	raw, err := base62(RTMUserIDRawLength)
	if err != nil {
		return "", err
	}
	return RTMUserIDPrefix + raw, nil
}

// IsGeneratedRTMUserID reports whether id has the shape produced by RTMUserID.
func IsGeneratedRTMUserID(id string) bool {
	raw, ok := strings.CutPrefix(id, RTMUserIDPrefix)
	if !ok || len(raw) != RTMUserIDRawLength {
		return false
	}
	for _, c := range raw {
		if !strings.ContainsRune(Base62Chars, c) {
			return false
		}
	}
	return true
}

// IssuanceID returns a UUID v4 labelling one issued token.
func IssuanceID() string {
	return uuid.NewString()
}
