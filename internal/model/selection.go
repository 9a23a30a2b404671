package model

type Zone string

const (
	ZoneLight Zone = "light"
	ZoneDark  Zone = "dark"
	ZoneBoth  Zone = "both"
)

func (z Zone) Valid() bool {
	return z == ZoneLight || z == ZoneDark || z == ZoneBoth
}

type Background string

const (
	BackgroundNone  Background = "none"
	BackgroundWhite Background = "white"
	BackgroundBlack Background = "black"
	BackgroundRed   Background = "red"
)

func (b Background) Valid() bool {
	switch b {
	case BackgroundNone, BackgroundWhite, BackgroundBlack, BackgroundRed:
		return true
	}
	return false
}

// Границы количества людей и животных
const (
	IncludedPeople   = 4 // "до 4 человек" входит в базовую цену
	MinCustomPeople  = 5
	MaxPeople        = 20
	IncludedAnimals  = 1
	MinCustomAnimals = 2
	MaxAnimals       = 10
)

// Selection набор услуг, выбранный в диалоге
type Selection struct {
	People     int        `json:"people_count"`
	Zone       Zone       `json:"zone"`
	Animals    int        `json:"animals_count"`
	Background Background `json:"background"`
}

// Valid проверяет, что все поля заполнены допустимыми значениями
func (s Selection) Valid() bool {
	return s.People >= 1 && s.People <= MaxPeople &&
		s.Zone.Valid() &&
		s.Animals >= 0 && s.Animals <= MaxAnimals &&
		s.Background.Valid()
}
