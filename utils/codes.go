// utils/codes.go
package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// RegistrationAlphabet is used for checkout codes (XXXX-XXXX-XXXX).
	RegistrationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// TicketAlphabet drops O, I, 0 and 1 so printed codes can be re-typed.
	TicketAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	TicketPrefix = "TKT-"
)

// randomSegment draws n characters uniformly from alphabet.
func randomSegment(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // crypto/rand does not fail on supported platforms
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}
	return sb.String()
}

// GenerateRegistrationCode returns a code shared by every item of one checkout.
// No uniqueness check is made; 36^12 combinations is enough in practice.
func GenerateRegistrationCode() string {
	return randomSegment(RegistrationAlphabet, 4) + "-" +
		randomSegment(RegistrationAlphabet, 4) + "-" +
		randomSegment(RegistrationAlphabet, 4)
}

// GenerateTicketCode returns TKT-XXXXX-XXXXX.
func GenerateTicketCode() string {
	return TicketPrefix + randomSegment(TicketAlphabet, 5) + "-" + randomSegment(TicketAlphabet, 5)
}

// GenerateTicketCodes returns n distinct ticket codes.
func GenerateTicketCodes(n int) []string {
	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)
	for len(codes) < n {
		code := GenerateTicketCode()
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// NormalizeCode trims and upper-cases a code typed or scanned by a user.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
