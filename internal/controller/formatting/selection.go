package formatting

import (
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
)

func ZoneLabel(z model.Zone) string {
	switch z {
	case model.ZoneLight:
		return "☀️ Світла"
	case model.ZoneDark:
		return "🌑 Темна"
	case model.ZoneBoth:
		return "🌗 Обидві зони"
	}
	return string(z)
}

func BackgroundLabel(bg model.Background) string {
	switch bg {
	case model.BackgroundNone:
		return "Без фону"
	case model.BackgroundWhite:
		return "⬜ Білий"
	case model.BackgroundBlack:
		return "⬛ Чорний"
	case model.BackgroundRed:
		return "🟥 Червоний"
	}
	return string(bg)
}

func PeopleLabel(people int) string {
	if people <= model.IncludedPeople {
		return fmt.Sprintf("до %d", model.IncludedPeople)
	}
	return fmt.Sprintf("%d", people)
}

func AnimalsLabel(animals int) string {
	if animals == 0 {
		return "немає"
	}
	return fmt.Sprintf("%d", animals)
}

// FormatSelection многострочная сводка выбранных услуг
func FormatSelection(sel model.Selection) string {
	return fmt.Sprintf(
		"👥 Людей: %s\n"+
			"💡 Зона: %s\n"+
			"🐾 Тварин: %s\n"+
			"🎨 Фон: %s",
		PeopleLabel(sel.People),
		ZoneLabel(sel.Zone),
		AnimalsLabel(sel.Animals),
		BackgroundLabel(sel.Background),
	)
}
