package payments

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const currencySuffix = " тг"

// ParseAmount reads Bitrix24's OPPORTUNITY string ("15000.00"). Garbage reads as 0.
func ParseAmount(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatAmount renders an amount the way the ru-RU payments table shows it: "15 000 тг".
func FormatAmount(raw string) string {
	p := message.NewPrinter(language.Russian)
	return p.Sprint(number.Decimal(ParseAmount(raw), number.MaxFractionDigits(2))) + currencySuffix
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDate turns DATE_CREATE into dd.mm.yyyy in the portal's own offset.
// Unparseable input is returned unchanged.
func FormatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02.01.2006")
		}
	}
	return raw
}
