package handlers

import (
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/studio_booking/internal/controller/formatting"
	"github.com/Freeeeeet/studio_booking/internal/controller/keyboard"
	"github.com/Freeeeeet/studio_booking/internal/dialog"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/go-telegram/bot/models"
)

const separator = "━━━━━━━━━━━━━━━━━━"

// Renderer превращает ответы диалога в текст и клавиатуру
type Renderer struct {
	rules          string
	paymentDetails string
	tariff         service.Tariff
}

func NewRenderer(rules, paymentDetails string, tariff service.Tariff) *Renderer {
	return &Renderer{
		rules:          rules,
		paymentDetails: paymentDetails,
		tariff:         tariff,
	}
}

// Render текст в HTML и клавиатура (может быть nil)
func (r *Renderer) Render(p dialog.Prompt) (string, *models.InlineKeyboardMarkup) {
	switch p.Kind {
	case dialog.KindConfirm:
		var sb strings.Builder
		if r.rules != "" {
			sb.WriteString(html.EscapeString(r.rules))
			sb.WriteString("\n\n" + separator + "\n\n")
		}
		sb.WriteString("📅 <b>Ваше бронювання:</b>\n\n")
		sb.WriteString(formatting.FormatBooking(p.Booking))
		sb.WriteString("\n\n" + separator + "\n\n❓ Підтверджуєте бронювання?")
		return sb.String(), keyboard.Confirmation(p.Booking.ID)

	case dialog.KindAlreadyConfirmed:
		text := "✅ Це бронювання вже підтверджено!\n\n" + formatting.FormatBooking(p.Booking)
		if p.Owner && p.Booking.Status == model.BookingStatusConfirmed && p.Booking.Selection == nil {
			text += "\n\nЩоб обрати послуги, надішліть /continue"
		}
		return text, nil

	case dialog.KindAsk:
		text := r.question(p.Step)
		if p.Invalid {
			text = "⚠️ Не вдалося розпізнати відповідь.\n\n" + text
		}
		return text, keyboard.ForStep(p.Step)

	case dialog.KindPaymentDetails:
		var sb strings.Builder
		sb.WriteString("🧾 <b>Ваш вибір:</b>\n\n")
		sb.WriteString(formatting.FormatSelection(p.Selection))
		fmt.Fprintf(&sb, "\n\n💵 До сплати: <b>%s</b>\n\n", formatting.FormatPrice(p.Price))
		if r.paymentDetails != "" {
			sb.WriteString(html.EscapeString(r.paymentDetails))
			sb.WriteString("\n\n")
		}
		sb.WriteString("📸 Після оплати надішліть скріншот квитанції в цей чат.")
		return sb.String(), keyboard.Payment(p.Booking.ID)

	case dialog.KindPaymentReceived:
		return "✅ Дякуємо! Квитанцію отримано.\n\n" +
			"Оплата буде перевірена найближчим часом.\n" +
			"Ми зв'яжемось з вами для підтвердження.", nil

	case dialog.KindCancelled:
		return "❌ Бронювання скасовано.\n\n" +
			"Якщо передумаєте - створіть нове бронювання на сайті.", nil

	case dialog.KindNothingToCancel:
		return "ℹ️ Немає активного бронювання для скасування.", nil
	case dialog.KindNothingToResume:
		return "ℹ️ Немає бронювання, для якого потрібно обрати послуги.", nil
	case dialog.KindNoConversation:
		return "ℹ️ Зараз я не очікую відповіді.\n\nЩоб продовжити вибір послуг, надішліть /continue", nil
	case dialog.KindSelectionRequired:
		return "ℹ️ Спочатку завершіть вибір послуг: /continue", nil
	case dialog.KindNoPaymentExpected:
		return "ℹ️ Спочатку створіть бронювання на сайті.", nil
	case dialog.KindNotFound:
		return "❌ Бронювання не знайдено.\n\nМожливо воно вже було скасоване або видалене.", nil
	case dialog.KindForbidden:
		return "⛔ Це бронювання належить іншому користувачу.", nil
	case dialog.KindAlreadyPaid:
		return "💰 Бронювання вже оплачено. Для скасування зв'яжіться з адміністратором.", nil
	case dialog.KindNotConfirmed:
		return "ℹ️ Спочатку підтвердіть бронювання.", nil
	}

	return "❌ Сталася помилка. Спробуйте пізніше.", nil
}

func (r *Renderer) question(step dialog.Step) string {
	switch step {
	case dialog.StepPeople:
		return fmt.Sprintf("👥 <b>Скільки людей буде на зйомці?</b>\n\n"+
			"До %d осіб входить у базову вартість %s.\n"+
			"Кожна додаткова особа: +%s",
			model.IncludedPeople,
			formatting.FormatPrice(r.tariff.BaseFee),
			formatting.FormatPrice(r.tariff.PerExtraPerson))
	case dialog.StepPeopleCustom:
		return fmt.Sprintf("✍️ Введіть кількість людей (від %d до %d):", model.MinCustomPeople, model.MaxPeople)
	case dialog.StepZone:
		return fmt.Sprintf("💡 <b>Оберіть зону студії</b>\n\nОбидві зони: +%s",
			formatting.FormatPrice(r.tariff.ZoneBothSurcharge))
	case dialog.StepAnimals:
		return fmt.Sprintf("🐾 <b>Чи будуть тварини?</b>\n\n"+
			"Одна тварина безкоштовно, кожна наступна: +%s",
			formatting.FormatPrice(r.tariff.PerExtraAnimal))
	case dialog.StepAnimalsCustom:
		return fmt.Sprintf("✍️ Введіть кількість тварин (від %d до %d):", model.MinCustomAnimals, model.MaxAnimals)
	case dialog.StepBackground:
		return fmt.Sprintf("🎨 <b>Оберіть фон</b>\n\nКольоровий фон: +%s",
			formatting.FormatPrice(r.tariff.BackgroundSurcharge))
	}
	return "❓"
}
