package migrator

import (
	"fmt"
	"log/slog"

	"github.com/pseudomuto/changekeeper/pkg/changeset"
)

type (
	// History answers which hash was recorded for a deployed changeset.
	History interface {
		HashOf(typ changeset.Type, name string) (string, bool)
	}

	// TamperedError indicates a deployed changeset whose contents have changed
	// since deployment.
	TamperedError struct {
		Type     changeset.Type
		Name     string
		Source   string
		Recorded string
		Current  string
	}
)

func (e *TamperedError) Error() string {
	what := "changeset"
	if e.Type == changeset.Table {
		what = "table create statement"
	}

	return fmt.Sprintf("%s '%s' has been changed after it was deployed", what, e.Name)
}

// Validate compares set against history and returns the changesets that still
// need to be deployed, in the order they appear in set.
//
// A TamperedError is returned for the first changeset whose hash differs from
// the recorded one.
//
// Example:
//
//	pending, err := migrator.Validate(tables, store)
//	if err != nil {
//		return err
//	}
//
//	for _, c := range pending.All() {
//		fmt.Println("pending:", c.Name)
//	}
func Validate(set *changeset.Set, history History) (*changeset.Set, error) {
	pending := changeset.NewSet(set.Type())

	for _, c := range set.All() {
		recorded, deployed := history.HashOf(c.Type, c.Name)
		if !deployed {
			if err := pending.Add(c); err != nil {
				return nil, err
			}
			continue
		}

		if recorded != c.Hash {
			return nil, &TamperedError{
				Type:     c.Type,
				Name:     c.Name,
				Source:   c.Source,
				Recorded: recorded,
				Current:  c.Hash,
			}
		}

		slog.Debug("Changeset already deployed", "type", c.Type, "name", c.Name)
	}

	return pending, nil
}

// Status describes how a single changeset relates to the migration history.
type Status string

const (
	// StatusPending marks changesets without a history record.
	StatusPending Status = "pending"

	// StatusDeployed marks changesets whose recorded hash matches.
	StatusDeployed Status = "deployed"

	// StatusTampered marks changesets whose recorded hash differs.
	StatusTampered Status = "tampered"
)

// Entry is one line of a status report.
type Entry struct {
	Changeset *changeset.Changeset
	Status    Status
}

// Inspect reports the status of every changeset in set without failing on
// tampered changesets. It backs the status command, which lists problems rather
// than stopping at the first one.
func Inspect(set *changeset.Set, history History) []Entry {
	entries := make([]Entry, 0, set.Len())

	for _, c := range set.All() {
		status := StatusPending
		if recorded, deployed := history.HashOf(c.Type, c.Name); deployed {
			status = StatusDeployed
			if recorded != c.Hash {
				status = StatusTampered
			}
		}

		entries = append(entries, Entry{Changeset: c, Status: status})
	}

	return entries
}
