package keyboard

import "github.com/go-telegram/bot/models"

// Builder собирает inline клавиатуру по рядам
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Row добавляет ряд, пустой ряд пропускается
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Grid раскладывает кнопки по рядам из columns штук
func (b *Builder) Grid(columns int, buttons ...models.InlineKeyboardButton) *Builder {
	if columns < 1 {
		columns = 1
	}
	for start := 0; start < len(buttons); start += columns {
		end := min(start+columns, len(buttons))
		b.Row(buttons[start:end]...)
	}
	return b
}

// Button кнопка с callback data
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

func (b *Builder) Build() *models.InlineKeyboardMarkup {
	rows := b.rows
	if rows == nil {
		rows = [][]models.InlineKeyboardButton{}
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
