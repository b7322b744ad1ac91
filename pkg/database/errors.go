package database

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const (
	newLine = '\n'

	undefinedTable = "42P01"
)

// IsMissingTableError reports whether err is, or wraps, a server error for an
// undefined table.
func IsMissingTableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTable
	}
	return false
}

// Describe returns a single line description of err, which was returned while
// executing query. Server errors include their SQLSTATE, and when the server
// reports a position, the line and column within query.
//
// Example output:
//
//	relation "users" already exists (SQLSTATE 42P07)
//	syntax error at or near "TABL" (SQLSTATE 42601) on line 3, column 8
func Describe(err error, query string) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err.Error()
	}

	message := fmt.Sprintf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	if pgErr.Position != 0 {
		if line, col, ok := computeLineFromPos(query, int(pgErr.Position)); ok {
			message = fmt.Sprintf("%s on line %d, column %d", message, line, col)
		}
	}

	if pgErr.Detail != "" {
		message = fmt.Sprintf("%s: %s", message, pgErr.Detail)
	}

	if pgErr.Hint != "" {
		message = fmt.Sprintf("%s (hint: %s)", message, pgErr.Hint)
	}

	return message
}

// computeLineFromPos converts a 1-based character position reported by the
// server into a line and column.
func computeLineFromPos(s string, pos int) (line uint, col uint, ok bool) {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	runes := []rune(s)
	if pos < 1 || pos > len(runes) {
		return 0, 0, false
	}

	sel := runes[:pos]
	line = uint(runesCount(sel, newLine) + 1)
	col = uint(pos - 1 - runesLastIndex(sel, newLine))
	return line, col, true
}

func runesCount(input []rune, target rune) int {
	var count int
	for _, r := range input {
		if r == target {
			count++
		}
	}
	return count
}

func runesLastIndex(input []rune, target rune) int {
	for i := len(input) - 1; i >= 0; i-- {
		if input[i] == target {
			return i
		}
	}
	return -1
}
