package strategy

import (
	"sort"

	"github.com/alejandrodnm/eventbt/internal/domain"
)

// Strategy define el contrato para simular un evento.
// Cada estrategia encapsula una lógica de trading diferente sobre los mismos datos.
type Strategy interface {
	// Name devuelve el identificador único de la estrategia.
	Name() string

	// Evaluate simula el evento idx y devuelve su PnL. Nunca falla: la falta de
	// datos se devuelve como domain.StatusMissing. Debe ser seguro llamarla en
	// paralelo sobre eventos distintos.
	Evaluate(idx int, ev domain.Event) domain.PnL
}

// Registry mantiene las estrategias disponibles indexadas por nombre.
type Registry map[string]Strategy

// NewRegistry crea un registry vacío.
func NewRegistry() Registry {
	return make(Registry)
}

// Register añade una estrategia al registry.
func (r Registry) Register(s Strategy) {
	r[s.Name()] = s
}

// Get devuelve la estrategia por nombre.
func (r Registry) Get(name string) (Strategy, bool) {
	s, ok := r[name]
	return s, ok
}

// Names devuelve los nombres registrados, ordenados.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
