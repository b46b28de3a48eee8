package shopping

import (
	"fmt"
	"strings"
)

// Location is where to look for supermarkets: either a city and state, or
// coordinates.
type Location struct {
	City  string   `json:"city,omitempty"`
	State string   `json:"state,omitempty"`
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
}

// Coordinates builds a coordinate location.
func Coordinates(lat, lon float64) Location {
	return Location{Lat: &lat, Lon: &lon}
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// states are the Brazilian federative units accepted as Location.State.
var states = map[string]string{
	"AC": "Acre", "AL": "Alagoas", "AP": "Amapá", "AM": "Amazonas", "BA": "Bahia",
	"CE": "Ceará", "DF": "Distrito Federal", "ES": "Espírito Santo", "GO": "Goiás",
	"MA": "Maranhão", "MT": "Mato Grosso", "MS": "Mato Grosso do Sul", "MG": "Minas Gerais",
	"PA": "Pará", "PB": "Paraíba", "PR": "Paraná", "PE": "Pernambuco", "PI": "Piauí",
	"RJ": "Rio de Janeiro", "RN": "Rio Grande do Norte", "RS": "Rio Grande do Sul",
	"RO": "Rondônia", "RR": "Roraima", "SC": "Santa Catarina", "SP": "São Paulo",
	"SE": "Sergipe", "TO": "Tocantins",
}

// StateName returns the full name for a UF code, case-insensitively.
func StateName(uf string) (string, bool) {
	name, ok := states[strings.ToUpper(strings.TrimSpace(uf))]
	return name, ok
}

// Validate checks that the location is usable for a comparison.
func (l Location) Validate() error {
	if l.HasCoordinates() {
		if *l.Lat < -90 || *l.Lat > 90 || *l.Lon < -180 || *l.Lon > 180 {
			return fmt.Errorf("coordinates out of range (%v, %v): %w", *l.Lat, *l.Lon, ErrNoLocation)
		}
		return nil
	}
	if strings.TrimSpace(l.City) == "" || strings.TrimSpace(l.State) == "" {
		return ErrNoLocation
	}
	if _, ok := StateName(l.State); !ok {
		return fmt.Errorf("unknown state %q: %w", l.State, ErrNoLocation)
	}
	return nil
}

// String renders the location for display.
func (l Location) String() string {
	if l.HasCoordinates() {
		return fmt.Sprintf("%.5f, %.5f", *l.Lat, *l.Lon)
	}
	return fmt.Sprintf("%s, %s", strings.TrimSpace(l.City), strings.ToUpper(strings.TrimSpace(l.State)))
}

// PromptFragment is the sentence that tells the model where the user is.
// Coordinates take precedence over a city.
func (l Location) PromptFragment() string {
	if l.HasCoordinates() {
		return fmt.Sprintf("O usuário forneceu sua localização via coordenadas: latitude %v, longitude %v. "+
			"O raio de busca para os supermercados deve ser de aproximadamente 10km.", *l.Lat, *l.Lon)
	}
	return fmt.Sprintf("O usuário selecionou a cidade de %s, Brasil.", l.String())
}
