package payments

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "15000тг", stripSpaces(FormatAmount("15000.00")))
	assert.Equal(t, "1500,5тг", stripSpaces(FormatAmount("1500.5")))
	assert.Equal(t, "0тг", stripSpaces(FormatAmount("not a number")))
	assert.True(t, strings.HasSuffix(FormatAmount("10"), " тг"))
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, 15000.0, ParseAmount("15000.00"))
	assert.Equal(t, 0.0, ParseAmount(""))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "15.03.2025", FormatDate("2025-03-15T10:00:00+03:00"))
	assert.Equal(t, "01.02.2024", FormatDate("2024-02-01"))
	assert.Equal(t, "вчера", FormatDate("вчера"))
}
