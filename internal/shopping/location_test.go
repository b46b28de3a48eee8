package shopping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		loc     Location
		wantErr bool
	}{
		{"city and state", Location{City: "Recife", State: "PE"}, false},
		{"coordinates", Coordinates(-8.05, -34.9), false},
		{"lowercase state", Location{City: "Recife", State: " pe "}, false},
		{"city only", Location{City: "Recife"}, true},
		{"unknown state", Location{City: "Recife", State: "XX"}, true},
		{"state name instead of code", Location{City: "Recife", State: "Pernambuco"}, true},
		{"empty", Location{}, true},
		{"latitude only", Location{Lat: Coordinates(1, 1).Lat}, true},
		{"out of range", Coordinates(120, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoLocation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocation_PromptFragment(t *testing.T) {
	city := Location{City: " Belo Horizonte ", State: "mg"}
	assert.Equal(t, "O usuário selecionou a cidade de Belo Horizonte, MG, Brasil.", city.PromptFragment())

	coords := Coordinates(-19.92, -43.94)
	frag := coords.PromptFragment()
	assert.True(t, strings.Contains(frag, "latitude -19.92, longitude -43.94"), frag)
	assert.Contains(t, frag, "10km")

	both := Location{City: "Belo Horizonte", State: "MG", Lat: coords.Lat, Lon: coords.Lon}
	assert.Equal(t, frag, both.PromptFragment(), "coordinates win over city")
}

func TestStateName(t *testing.T) {
	name, ok := StateName("sp")
	assert.True(t, ok)
	assert.Equal(t, "São Paulo", name)

	_, ok = StateName("ZZ")
	assert.False(t, ok)
	assert.Len(t, states, 27)
}
