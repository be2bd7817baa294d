package utils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	registrationCodePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)
	ticketCodePattern       = regexp.MustCompile(`^TKT-[A-Z2-9]{5}-[A-Z2-9]{5}$`)
)

func TestGenerateRegistrationCodeFormat(t *testing.T) {
	for i := 0; i < 500; i++ {
		code := GenerateRegistrationCode()
		assert.Regexp(t, registrationCodePattern, code)
	}
}

func TestGenerateTicketCodeFormat(t *testing.T) {
	for i := 0; i < 500; i++ {
		code := GenerateTicketCode()
		assert.Regexp(t, ticketCodePattern, code)
		body := strings.TrimPrefix(code, TicketPrefix)
		assert.NotContains(t, body, "O")
		assert.NotContains(t, body, "I")
		assert.NotContains(t, body, "0")
		assert.NotContains(t, body, "1")
	}
}

func TestTicketAlphabetExcludesAmbiguousGlyphs(t *testing.T) {
	assert.Len(t, TicketAlphabet, 32)
	for _, r := range "OI01" {
		assert.NotContains(t, TicketAlphabet, string(r))
	}
}

func TestGenerateTicketCodesDistinct(t *testing.T) {
	codes := GenerateTicketCodes(50)
	assert.Len(t, codes, 50)
	seen := map[string]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
	}
	assert.Empty(t, GenerateTicketCodes(0))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "TKT-ABCDE-FGHJK", NormalizeCode("  tkt-abcde-fghjk "))
}
