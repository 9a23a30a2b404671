package formatting

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/Freeeeeet/studio_booking/internal/model"
)

// FormatBooking сводка бронирования в HTML
func FormatBooking(b *model.Booking) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📅 Дата: %s\n", FormatDate(b.Date))
	fmt.Fprintf(&sb, "🕐 Час: %s\n", FormatHour(b.Hour))
	if b.Client != nil {
		fmt.Fprintf(&sb, "👤 Ім'я: %s\n", html.EscapeString(b.Client.Name))
		fmt.Fprintf(&sb, "📞 Телефон: %s\n", html.EscapeString(b.Client.Phone))
	}
	if b.Selection != nil {
		sb.WriteString("\n")
		sb.WriteString(FormatSelection(*b.Selection))
		sb.WriteString("\n")
	}
	if b.TotalPrice != nil {
		fmt.Fprintf(&sb, "💵 Сума: <b>%s</b>\n", FormatPrice(*b.TotalPrice))
	}

	display := GetBookingStatusDisplay(b.Status)
	fmt.Fprintf(&sb, "%s %s", display.Emoji, display.Text)

	return sb.String()
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
