package dialog

import (
	"strconv"
	"strings"

	"github.com/Freeeeeet/studio_booking/internal/model"
)

// Ответы кнопок. Для зоны и фона используются значения model.Zone и model.Background.
const (
	TokenUpTo4  = "le4"
	TokenCustom = "custom"
	TokenNone   = "none"
	TokenOne    = "one"
)

// advance применяет ответ к диалогу.
// ok=false означает неверный ввод, диалог не меняется.
// done=true означает, что все шаги пройдены.
func advance(conv Conversation, raw string) (next Conversation, done bool, ok bool) {
	answer := strings.ToLower(strings.TrimSpace(raw))
	next = conv

	switch conv.Step {
	case StepPeople:
		switch answer {
		case TokenUpTo4:
			next.Selection.People = model.IncludedPeople
		case TokenCustom:
			next.Step = StepPeopleCustom
			return next, false, true
		default:
			n, valid := parseCount(answer, 1, model.MaxPeople)
			if !valid {
				return conv, false, false
			}
			// До четырёх человек это выбор кнопки "≤4"
			next.Selection.People = max(n, model.IncludedPeople)
		}
		next.Step = StepZone

	case StepPeopleCustom:
		n, valid := parseCount(answer, model.MinCustomPeople, model.MaxPeople)
		if !valid {
			return conv, false, false
		}
		next.Selection.People = n
		next.Step = StepZone

	case StepZone:
		zone := model.Zone(answer)
		if !zone.Valid() {
			return conv, false, false
		}
		next.Selection.Zone = zone
		next.Step = StepAnimals

	case StepAnimals:
		switch answer {
		case TokenNone:
			next.Selection.Animals = 0
		case TokenOne:
			next.Selection.Animals = model.IncludedAnimals
		case TokenCustom:
			next.Step = StepAnimalsCustom
			return next, false, true
		default:
			n, valid := parseCount(answer, 0, model.MaxAnimals)
			if !valid {
				return conv, false, false
			}
			next.Selection.Animals = n
		}
		next.Step = StepBackground

	case StepAnimalsCustom:
		n, valid := parseCount(answer, model.MinCustomAnimals, model.MaxAnimals)
		if !valid {
			return conv, false, false
		}
		next.Selection.Animals = n
		next.Step = StepBackground

	case StepBackground:
		bg := model.Background(answer)
		if !bg.Valid() {
			return conv, false, false
		}
		next.Selection.Background = bg
		return next, true, true

	default:
		return conv, false, false
	}

	return next, false, true
}

func parseCount(s string, lo, hi int) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}
