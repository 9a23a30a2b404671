package service

import "github.com/Freeeeeet/studio_booking/internal/model"

// Tariff цены в гривнах
type Tariff struct {
	BaseFee             int
	PerExtraPerson      int
	ZoneBothSurcharge   int
	PerExtraAnimal      int
	BackgroundSurcharge int
}

// DefaultTariff тариф по умолчанию
func DefaultTariff() Tariff {
	return Tariff{
		BaseFee:             1000,
		PerExtraPerson:      100,
		ZoneBothSurcharge:   300,
		PerExtraAnimal:      100,
		BackgroundSurcharge: 200,
	}
}

// Price считает стоимость сессии для выбранных услуг
func (t Tariff) Price(sel model.Selection) int {
	price := t.BaseFee

	if extra := sel.People - model.IncludedPeople; extra > 0 {
		price += extra * t.PerExtraPerson
	}
	if sel.Zone == model.ZoneBoth {
		price += t.ZoneBothSurcharge
	}
	if extra := sel.Animals - model.IncludedAnimals; extra > 0 {
		price += extra * t.PerExtraAnimal
	}
	if sel.Background != model.BackgroundNone {
		price += t.BackgroundSurcharge
	}

	return price
}
