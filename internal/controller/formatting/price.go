package formatting

import (
	"strconv"
	"strings"
)

// FormatPrice форматирует цену в гривнах с разделителем тысяч: "1 500 грн"
func FormatPrice(uah int) string {
	sign := ""
	if uah < 0 {
		sign = "-"
		uah = -uah
	}

	digits := strconv.Itoa(uah)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}

	return sign + b.String() + " грн"
}
