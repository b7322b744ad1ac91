package changeset

import "fmt"

type (
	// MalformedFileError indicates a multi-changeset file whose first non-blank
	// line is not a changeset marker.
	MalformedFileError struct {
		Path string
		Line int
	}

	// MissingNameError indicates a changeset marker without a name.
	MissingNameError struct {
		Path string
		Line int
	}

	// InvalidNameError indicates a changeset name that cannot be stored in the
	// migration history or used as the file name of its audit copy.
	InvalidNameError struct {
		Name   string
		Path   string
		Line   int
		Reason string
	}

	// DuplicateNameError indicates that a changeset name was seen more than once
	// for the same type in a single run.
	DuplicateNameError struct {
		Type     Type
		Name     string
		Location string
		Previous string
	}
)

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("file '%s' does not start with a changeset (line %d)", e.Path, e.Line)
}

func (e *MissingNameError) Error() string {
	return fmt.Sprintf("changeset name missing in %s", location(e.Path, e.Line))
}

func (e *InvalidNameError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid changeset name '%s': %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("invalid changeset name '%s' in %s: %s", e.Name, location(e.Path, e.Line), e.Reason)
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("changeset name '%s' occurs more than once (%s, previously %s)", e.Name, e.Location, e.Previous)
}

func location(path string, line int) string {
	if line <= 0 {
		return path
	}
	return fmt.Sprintf("%s:%d", path, line)
}
