package dialog

import (
	"testing"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		step     Step
		raw      string
		wantStep Step
		wantDone bool
		wantOK   bool
	}{
		{name: "up to four", step: StepPeople, raw: TokenUpTo4, wantStep: StepZone, wantOK: true},
		{name: "people custom", step: StepPeople, raw: TokenCustom, wantStep: StepPeopleCustom, wantOK: true},
		{name: "people typed directly", step: StepPeople, raw: " 12 ", wantStep: StepZone, wantOK: true},
		{name: "people zero", step: StepPeople, raw: "0", wantStep: StepPeople},
		{name: "custom lower bound", step: StepPeopleCustom, raw: "5", wantStep: StepZone, wantOK: true},
		{name: "custom upper bound", step: StepPeopleCustom, raw: "20", wantStep: StepZone, wantOK: true},
		{name: "custom too small", step: StepPeopleCustom, raw: "4", wantStep: StepPeopleCustom},
		{name: "zone case insensitive", step: StepZone, raw: "DARK", wantStep: StepAnimals, wantOK: true},
		{name: "zone unknown", step: StepZone, raw: "grey", wantStep: StepZone},
		{name: "no animals", step: StepAnimals, raw: TokenNone, wantStep: StepBackground, wantOK: true},
		{name: "animals custom", step: StepAnimals, raw: TokenCustom, wantStep: StepAnimalsCustom, wantOK: true},
		{name: "animals custom range", step: StepAnimalsCustom, raw: "11", wantStep: StepAnimalsCustom},
		{name: "animals custom ok", step: StepAnimalsCustom, raw: "2", wantStep: StepBackground, wantOK: true},
		{name: "background done", step: StepBackground, raw: "white", wantStep: StepBackground, wantDone: true, wantOK: true},
		{name: "background unknown", step: StepBackground, raw: "blue", wantStep: StepBackground},
		{name: "no step", step: StepNone, raw: "1", wantStep: StepNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, done, ok := advance(Conversation{Step: tt.step}, tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDone, done)
			assert.Equal(t, tt.wantStep, next.Step)
		})
	}
}

func TestAdvanceTypedCountsMatchChoices(t *testing.T) {
	tests := []struct {
		step    Step
		raw     string
		people  int
		animals int
	}{
		{step: StepPeople, raw: "1", people: model.IncludedPeople},
		{step: StepPeople, raw: "3", people: model.IncludedPeople},
		{step: StepPeople, raw: "4", people: model.IncludedPeople},
		{step: StepPeople, raw: "7", people: 7},
		{step: StepAnimals, raw: "0", animals: 0},
		{step: StepAnimals, raw: "1", animals: model.IncludedAnimals},
		{step: StepAnimals, raw: "3", animals: 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.step)+"/"+tt.raw, func(t *testing.T) {
			next, _, ok := advance(Conversation{Step: tt.step}, tt.raw)
			assert.True(t, ok)
			assert.Equal(t, tt.people, next.Selection.People)
			assert.Equal(t, tt.animals, next.Selection.Animals)
		})
	}
}

func TestAdvanceBuildsSelection(t *testing.T) {
	conv := Conversation{Step: StepPeople}
	for _, raw := range []string{TokenUpTo4, "light", TokenOne} {
		var ok bool
		conv, _, ok = advance(conv, raw)
		assert.True(t, ok)
	}
	conv, done, ok := advance(conv, "none")

	assert.True(t, ok)
	assert.True(t, done)
	assert.Equal(t, model.Selection{
		People:     model.IncludedPeople,
		Zone:       model.ZoneLight,
		Animals:    model.IncludedAnimals,
		Background: model.BackgroundNone,
	}, conv.Selection)
}
