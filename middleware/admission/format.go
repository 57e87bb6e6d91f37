package admission

// Formatação de valores numéricos para headers, sem notação científica.

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatEpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// formatDurationMillis formata a duração em milissegundos com duas casas,
// ex.: "1.25ms".
func formatDurationMillis(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000
	return strconv.FormatFloat(ms, 'f', 2, 64) + "ms"
}
