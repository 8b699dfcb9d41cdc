package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names one token position within a row
type Field struct {
	Key   string
	Label string
}

// Row maps field keys to token values. Decimal tokens are stored as int, everything else
// as string.
type Row map[string]interface{}

// String returns the value of key formatted as text, or "" when absent.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the value of key when it holds a whole number.
func (r Row) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case int:
		return v, true
	case string:
		if isDecimal(v) {
			n, err := strconv.Atoi(v)
			return n, err == nil
		}
	}
	return 0, false
}

// Group slices tokens into rows of len(fields). A trailing partial row is dropped.
func Group(tokens []string, fields []Field) []Row {
	width := len(fields)
	if width == 0 {
		return nil
	}

	rows := make([]Row, 0, len(tokens)/width)
	for start := 0; start+width <= len(tokens); start += width {
		row := make(Row, width)
		for i, f := range fields {
			row[f.Key] = tokenValue(tokens[start+i])
		}
		rows = append(rows, row)
	}
	return rows
}

func tokenValue(token string) interface{} {
	if isDecimal(token) {
		if n, err := strconv.Atoi(token); err == nil {
			return n
		}
	}
	return token
}

// isDecimal reports whether s is a non-empty run of ASCII digits.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// digits keeps only the decimal digits of s.
func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// tokenWindow gives bounds-checked, position-indexed access to one row inside the token
// stream while repair rules merge and delete tokens.
type tokenWindow struct {
	tokens []string
	start  int
}

func (w *tokenWindow) has(i int) bool {
	return w.start+i < len(w.tokens)
}

func (w *tokenWindow) at(i int) string {
	if !w.has(i) {
		return ""
	}
	return w.tokens[w.start+i]
}

func (w *tokenWindow) set(i int, v string) {
	if w.has(i) {
		w.tokens[w.start+i] = v
	}
}

// mergeInto appends token i to token i-1 and removes token i.
func (w *tokenWindow) mergeInto(i int) {
	if i <= 0 || !w.has(i) {
		return
	}
	w.tokens[w.start+i-1] += w.tokens[w.start+i]
	w.drop(i)
}

// drop removes token i, shifting later tokens left.
func (w *tokenWindow) drop(i int) {
	if !w.has(i) {
		return
	}
	idx := w.start + i
	w.tokens = append(w.tokens[:idx], w.tokens[idx+1:]...)
}

// normalizeNumber replaces token i with its digits, or "0" when it has none.
func (w *tokenWindow) normalizeNumber(i int) {
	if !w.has(i) || isDecimal(w.at(i)) {
		return
	}
	n := digits(w.at(i))
	if n == "" {
		n = "0"
	}
	w.set(i, n)
}

// repairRows walks the stream one row at a time, applying fix to each window.
// The input slice is not modified.
func repairRows(tokens []string, width int, fix func(w *tokenWindow)) []string {
	w := &tokenWindow{tokens: append([]string(nil), tokens...)}
	for w.start = 0; w.start+width <= len(w.tokens); w.start += width {
		fix(w)
	}
	return w.tokens
}
