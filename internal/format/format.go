// Package format renders values the way Brazilian users expect them:
// currency in reais, dates as day/month/year and invoice statuses by their
// display label.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Empty is shown in place of a missing value.
const Empty = "-"

// Currency formats v as "R$ 1.234,56".
func Currency(v float64) string {
	negative := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))

	intPart := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	s := fmt.Sprintf("R$ %s,%02d", grouped.String(), cents%100)
	if negative && cents != 0 {
		s = "-" + s
	}
	return s
}

// ParseAmount parses a user-typed amount. Both "100,50" and "100.50" give
// 100.5; "1.234,56" is read with "." as thousands separator.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("valor vazio")
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("valor inválido: %q", s)
	}
	return v, nil
}

// dateLayouts are the timestamp shapes the backend emits.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a backend timestamp.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date formats a backend timestamp as "02/01/2006". Empty input gives
// Empty; unparseable input is returned as is.
func Date(s string) string {
	if strings.TrimSpace(s) == "" {
		return Empty
	}
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("02/01/2006")
}

// DateTime formats t as "02/01/2006 15:04", or Empty for the zero time.
func DateTime(t time.Time) string {
	if t.IsZero() {
		return Empty
	}
	return t.Local().Format("02/01/2006 15:04")
}

// Invoice status labels.
const (
	StatusAuthorized = "AUTORIZADA"
	StatusCanceled   = "CANCELADA"
	StatusProcessing = "PROCESSANDO"
	StatusError      = "ERRO"
	StatusPending    = "PENDENTE"
)

// StatusLabel maps a backend invoice status onto its display label.
func StatusLabel(status string) string {
	s := strings.ToUpper(strings.TrimSpace(status))
	switch s {
	case "":
		return StatusPending
	case "CONCLUIDA", StatusAuthorized:
		return StatusAuthorized
	case "ERRO_EMISSAO", StatusError:
		return StatusError
	default:
		return s
	}
}

// Document formats a CPF (11 digits) or CNPJ (14 digits). Other input is
// returned unchanged.
func Document(doc string) string {
	digits := make([]byte, 0, len(doc))
	for i := 0; i < len(doc); i++ {
		if doc[i] >= '0' && doc[i] <= '9' {
			digits = append(digits, doc[i])
		}
	}
	d := string(digits)
	switch len(d) {
	case 11:
		return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
	case 14:
		return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
	default:
		if doc == "" {
			return Empty
		}
		return doc
	}
}

// Or returns s, or Empty when s is blank.
func Or(s string) string {
	if strings.TrimSpace(s) == "" {
		return Empty
	}
	return s
}

// Usage formats plan usage as "used/limit", with "ilimitado" for limit 0.
func Usage(used, limit int) string {
	if limit <= 0 {
		return fmt.Sprintf("%d/ilimitado", used)
	}
	return fmt.Sprintf("%d/%d", used, limit)
}
