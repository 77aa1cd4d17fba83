// utilitário pequeno para formatação rápida/consistente de valores numéricos em headers.

package faucet

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string {
	// sem notação científica para valores comuns
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// retryAfterSeconds trunca para segundos inteiros, mas nunca anuncia 0 para uma espera real.
func retryAfterSeconds(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	s := int(d.Seconds())
	if s < 1 {
		s = 1
	}
	return formatInt(s)
}
