package changeset

import (
	"crypto/md5" // nolint: gosec
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/consts"
)

// MaxNameLength is the longest name, in bytes, whose audit copy still fits the
// 255 byte file name limit of common file systems. The migration history
// column holds 255 characters, so it fits there too.
const MaxNameLength = 255 - len(consts.Extension)

const (
	// Table identifies changesets created from table-create statement files.
	Table Type = "tables"

	// Incremental identifies changesets declared inline in multi-changeset files.
	Incremental Type = "changesets"
)

type (
	// Type separates the deployment streams. Histories for different types are
	// tracked independently, even when names collide across types.
	Type string

	// Changeset is a named, immutable unit of SQL.
	Changeset struct {
		// Name uniquely identifies the changeset within its Type.
		Name string

		// Type is the deployment stream the changeset belongs to.
		Type Type

		// Contents is the trimmed SQL text.
		Contents string

		// Hash is the hex encoded MD5 digest of Contents.
		Hash string

		// Source is the path of the file the changeset was read from.
		Source string

		// Line is the line in Source where the changeset starts.
		Line int
	}

	// Set is an insertion ordered collection of changesets of a single type,
	// keyed by name.
	Set struct {
		typ   Type
		items []*Changeset
		index map[string]int
	}
)

// New creates a changeset, trimming contents and computing its hash.
func New(name string, typ Type, contents string) *Changeset {
	contents = strings.TrimSpace(contents)
	return &Changeset{
		Name:     name,
		Type:     typ,
		Contents: contents,
		Hash:     Hash(contents),
	}
}

// Hash returns the hex encoded MD5 digest of contents.
func Hash(contents string) string {
	sum := md5.Sum([]byte(contents)) // nolint: gosec
	return hex.EncodeToString(sum[:])
}

// ValidateName returns an *InvalidNameError if name cannot be recorded in the
// migration history or used as the file name of an audit copy.
func ValidateName(name string) error {
	var reason string
	switch {
	case name == "." || name == "..":
		reason = "not a file name"
	case strings.ContainsAny(name, "/\\\x00"):
		reason = `must not contain "/", "\" or NUL`
	case len(name) > MaxNameLength:
		reason = fmt.Sprintf("longer than %d bytes", MaxNameLength)
	default:
		return nil
	}

	return &InvalidNameError{Name: name, Reason: reason}
}

// AuditPath returns where the audit copy of c lives below root.
//
// Example:
//
//	c := changeset.New("users", changeset.Table, "CREATE TABLE users (id int);")
//	c.AuditPath("deployed") // deployed/tables/users.sql
func (c *Changeset) AuditPath(root string) string {
	return filepath.Join(root, string(c.Type), c.Name+consts.Extension)
}

// location renders Source and Line for error messages.
func (c *Changeset) location() string {
	if c.Source == "" {
		return "<unknown>"
	}
	return location(c.Source, c.Line)
}

// NewSet creates an empty Set for changesets of the given type.
func NewSet(typ Type) *Set {
	return &Set{
		typ:   typ,
		index: make(map[string]int),
	}
}

// Type returns the type of changesets held by the set.
func (s *Set) Type() Type {
	return s.typ
}

// Add appends c to the set. An InvalidNameError is returned for names that
// fail ValidateName and a DuplicateNameError if a changeset with the same name
// is already present.
func (s *Set) Add(c *Changeset) error {
	if c.Type != s.typ {
		return errors.Errorf("cannot add %s changeset %s to a set of %s", c.Type, c.Name, s.typ)
	}

	if err := ValidateName(c.Name); err != nil {
		var invalid *InvalidNameError
		if errors.As(err, &invalid) {
			invalid.Path, invalid.Line = c.Source, c.Line
		}
		return err
	}

	if i, exists := s.index[c.Name]; exists {
		prev := s.items[i]
		return &DuplicateNameError{
			Type:     s.typ,
			Name:     c.Name,
			Location: c.location(),
			Previous: prev.location(),
		}
	}

	s.index[c.Name] = len(s.items)
	s.items = append(s.items, c)
	return nil
}

// Get returns the changeset with the given name.
func (s *Set) Get(name string) (*Changeset, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

// Contains returns true if a changeset with the given name is in the set.
func (s *Set) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of changesets in the set.
func (s *Set) Len() int {
	return len(s.items)
}

// All returns the changesets in insertion order.
func (s *Set) All() []*Changeset {
	items := make([]*Changeset, len(s.items))
	copy(items, s.items)
	return items
}

// Names returns the changeset names in insertion order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.items))
	for _, c := range s.items {
		names = append(names, c.Name)
	}
	return names
}
