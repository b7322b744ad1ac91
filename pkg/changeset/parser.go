package changeset

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

const markerPrefix = "--changeset"

var (
	// changesetLexer splits a multi-changeset file into whole lines. Rules are
	// tried in order, so a line is a Marker before it is a Blank or a Line.
	changesetLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Marker", Pattern: `--changeset(?:[ \t\r][^\n]*)?(?:\n|$)`},
		{Name: "Blank", Pattern: `[ \t\r\f\v]*\n|[ \t\r\f\v]+$`},
		{Name: "Line", Pattern: `[^\n]+\n?`},
	})

	// fileParser is the participle parser instance for multi-changeset files
	fileParser = participle.MustBuild[changesetFile](
		participle.Lexer(changesetLexer),
	)
)

type (
	// changesetFile is the grammar root: optional blank lines followed by any
	// number of marker-introduced blocks.
	changesetFile struct {
		Blocks []*changesetBlock `parser:"Blank* @@*"`
	}

	// changesetBlock is a marker line and every line up to the next marker.
	changesetBlock struct {
		Pos    lexer.Position
		Marker string   `parser:"@Marker"`
		Body   []string `parser:"@(Line | Blank)*"`
	}
)

// ParseFile parses the multi-changeset file text, read from path, and adds every
// changeset it declares to into. The set is shared across files so duplicate
// names are detected for the whole run.
//
// Example:
//
//	set := changeset.NewSet(changeset.Incremental)
//	err := changeset.ParseFile("001.sql", "--changeset one\nSELECT 1;\n", set)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	c, _ := set.Get("one")
//	fmt.Println(c.Contents) // SELECT 1;
func ParseFile(path, text string, into *Set) error {
	if into.Type() != Incremental {
		return errors.Errorf("changeset files can only be parsed into a set of %s", Incremental)
	}

	file, err := fileParser.ParseString(path, text)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return &MalformedFileError{Path: path, Line: perr.Position().Line}
		}

		return errors.Wrapf(err, "failed to parse %s", path)
	}

	for _, block := range file.Blocks {
		name := strings.TrimSpace(strings.TrimPrefix(block.Marker, markerPrefix))
		if name == "" {
			return &MissingNameError{Path: path, Line: block.Pos.Line}
		}

		c := New(name, Incremental, strings.Join(block.Body, ""))
		c.Source = path
		c.Line = block.Pos.Line

		if err := into.Add(c); err != nil {
			return err
		}
	}

	return nil
}
