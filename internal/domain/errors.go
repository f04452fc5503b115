package domain

import "errors"

var (
	// ErrNoEvents se devuelve cuando un run no tiene eventos y la asignación
	// por evento (valor bruto / número de eventos) no está definida.
	ErrNoEvents = errors.New("no events")

	// ErrShape indica datos de entrada con una forma incompatible con el contrato
	// (fechas sin alinear, valores no finitos, parámetros inválidos).
	ErrShape = errors.New("input shape violation")

	// ErrNoRates indica que la serie de tipos de financiación está vacía.
	ErrNoRates = errors.New("no financing rates")
)
