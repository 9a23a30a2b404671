package dialog

import "github.com/Freeeeeet/studio_booking/internal/model"

// Kind тип ответа пользователю
type Kind string

const (
	KindConfirm           Kind = "confirm"            // Правила и кнопки подтвердить/отменить
	KindAlreadyConfirmed  Kind = "already_confirmed"  // Сводка без повторного подтверждения
	KindAsk               Kind = "ask"                // Вопрос текущего шага
	KindPaymentDetails    Kind = "payment_details"    // Цена и реквизиты
	KindPaymentReceived   Kind = "payment_received"   // Квитанция принята
	KindCancelled         Kind = "cancelled"          // Бронирование отменено
	KindNothingToCancel   Kind = "nothing_to_cancel"  // Уже отменено или нет активного
	KindNothingToResume   Kind = "nothing_to_resume"  // Нет бронирования для продолжения
	KindNoConversation    Kind = "no_conversation"    // Ответ вне диалога
	KindSelectionRequired Kind = "selection_required" // Квитанция до выбора услуг
	KindNoPaymentExpected Kind = "no_payment"         // Квитанция без бронирования
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindAlreadyPaid       Kind = "already_paid"
	KindNotConfirmed      Kind = "not_confirmed"
)

// Prompt что показать пользователю после действия
type Prompt struct {
	Kind      Kind
	Step      Step
	Invalid   bool // Предыдущий ответ не принят
	Owner     bool // Бронирование привязано к этому пользователю
	Booking   *model.Booking
	Selection model.Selection
	Price     int
}
