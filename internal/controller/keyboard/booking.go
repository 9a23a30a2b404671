package keyboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/studio_booking/internal/dialog"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/go-telegram/bot/models"
)

// Callback data
const (
	Confirm      = "confirm:" // confirm:booking_id
	Cancel       = "cancel:"  // cancel:booking_id
	Pay          = "pay:"     // pay:booking_id
	Answer       = "answer:"  // answer:token
	DialogCancel = "dialog:cancel"
)

// ParseID извлекает ID из callback data: "confirm:123" -> 123
func ParseID(data, prefix string) (int64, error) {
	raw, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, fmt.Errorf("unexpected callback data %q", data)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// Confirmation кнопки подтвердить/отменить
func Confirmation(bookingID int64) *models.InlineKeyboardMarkup {
	id := strconv.FormatInt(bookingID, 10)
	return NewBuilder().
		Row(
			Button("✅ Підтвердити", Confirm+id),
			Button("❌ Скасувати", Cancel+id),
		).
		Build()
}

// Payment кнопка онлайн-оплаты
func Payment(bookingID int64) *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(Button("💰 Оплатити онлайн", Pay+strconv.FormatInt(bookingID, 10))).
		Build()
}

// ForStep кнопки ответа для шага диалога. Для свободного ввода только кнопка отмены.
func ForStep(step dialog.Step) *models.InlineKeyboardMarkup {
	b := NewBuilder()

	switch step {
	case dialog.StepPeople:
		b.Row(
			Button("👥 До 4 осіб", Answer+dialog.TokenUpTo4),
			Button("✍️ Більше (5-20)", Answer+dialog.TokenCustom),
		)
	case dialog.StepZone:
		b.Grid(2,
			Button("☀️ Світла", Answer+string(model.ZoneLight)),
			Button("🌑 Темна", Answer+string(model.ZoneDark)),
			Button("🌗 Обидві зони", Answer+string(model.ZoneBoth)),
		)
	case dialog.StepAnimals:
		b.Row(
			Button("🚫 Без тварин", Answer+dialog.TokenNone),
			Button("🐶 Одна", Answer+dialog.TokenOne),
			Button("🐾 Більше", Answer+dialog.TokenCustom),
		)
	case dialog.StepBackground:
		b.Grid(2,
			Button("Без фону", Answer+string(model.BackgroundNone)),
			Button("⬜ Білий", Answer+string(model.BackgroundWhite)),
			Button("⬛ Чорний", Answer+string(model.BackgroundBlack)),
			Button("🟥 Червоний", Answer+string(model.BackgroundRed)),
		)
	}

	b.Row(Button("❌ Скасувати бронювання", DialogCancel))
	return b.Build()
}
