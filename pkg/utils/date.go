package utils

import "time"

// StartOfDay retorna o início do dia calendário local da data informada.
// Transações exatamente na fronteira contam para o dia que começa.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfMonth retorna o início do mês calendário local da data informada.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
