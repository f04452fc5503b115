package domain

import "time"

// DateLayout es el formato de fecha usado en CSV, SQLite y logs.
const DateLayout = "2006-01-02"

// Day normaliza t a medianoche UTC de su fecha civil. Todas las claves de
// paneles y series usan fechas normalizadas con Day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parsea una fecha en DateLayout.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// IsBusinessDay devuelve true de lunes a viernes. No modela festivos.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDays enumera los días hábiles en [from, to], ambos inclusive.
// Devuelve nil si from es posterior a to.
func BusinessDays(from, to time.Time) []time.Time {
	from, to = Day(from), Day(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// AddBusinessDays avanza n días hábiles desde t (n >= 0).
func AddBusinessDays(t time.Time, n int) time.Time {
	d := Day(t)
	for n > 0 {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			n--
		}
	}
	return d
}
