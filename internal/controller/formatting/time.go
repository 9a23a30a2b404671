package formatting

import (
	"fmt"
	"time"
)

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatHour форматирует час слота
func FormatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// FormatSlot дата и время слота: "02.05.2030 о 10:00"
func FormatSlot(date time.Time, hour int) string {
	return fmt.Sprintf("%s о %s", FormatDate(date), FormatHour(hour))
}
