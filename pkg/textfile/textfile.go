package textfile

import (
	"fmt"
	"io/fs"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/consts"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	utf8Name = "utf-8"
	bom      = "\ufeff"
)

// newlines folds Windows and classic Mac line endings into "\n", matching
// how existing migration histories hashed their files.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// aliases maps labels that are not part of the WHATWG index to their canonical names.
var aliases = map[string]string{
	"ansi": "windows-1252",
}

type (
	// Reader decodes files using the first encoding, in priority order, that
	// accepts the file's bytes.
	Reader struct {
		encodings []namedEncoding
	}

	// UndecodableFileError is returned when none of the configured encodings
	// could decode a file.
	UndecodableFileError struct {
		Path      string
		Encodings []string
	}

	namedEncoding struct {
		name string
		enc  encoding.Encoding
	}
)

func (e *UndecodableFileError) Error() string {
	return fmt.Sprintf("unable to decode %s with any of the encodings: %s", e.Path, strings.Join(e.Encodings, ", "))
}

// New creates a Reader that tries the given encodings in order. When no
// encodings are given, consts.DefaultEncodings is used.
//
// An error is returned if any label is unknown.
func New(names ...string) (*Reader, error) {
	if len(names) == 0 {
		names = consts.DefaultEncodings
	}

	r := &Reader{encodings: make([]namedEncoding, 0, len(names))}
	for _, label := range names {
		label = strings.ToLower(strings.TrimSpace(label))
		if alias, ok := aliases[label]; ok {
			label = alias
		}

		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, errors.Wrapf(err, "unknown encoding: %s", label)
		}

		name, err := htmlindex.Name(enc)
		if err != nil {
			return nil, errors.Wrapf(err, "unknown encoding: %s", label)
		}

		r.encodings = append(r.encodings, namedEncoding{name: name, enc: enc})
	}

	return r, nil
}

// Encodings returns the canonical names of the configured encodings in priority order.
func (r *Reader) Encodings() []string {
	names := make([]string, 0, len(r.encodings))
	for _, e := range r.encodings {
		names = append(names, e.name)
	}
	return names
}

// ReadFile reads path from fsys and decodes it.
func (r *Reader) ReadFile(fsys fs.FS, path string) (string, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file: %s", path)
	}

	text, err := r.Decode(data)
	if err != nil {
		var undecodable *UndecodableFileError
		if errors.As(err, &undecodable) {
			undecodable.Path = path
		}
		return "", err
	}

	return text, nil
}

// Decode converts data to a string using the first encoding that accepts it.
//
// UTF-8 is strict: any invalid byte sequence rejects it so that the next
// encoding gets a chance. A leading byte order mark is removed and line
// endings are normalized to "\n".
func (r *Reader) Decode(data []byte) (string, error) {
	for _, e := range r.encodings {
		text, err := decode(e, data)
		if err != nil {
			continue
		}

		return newlines.Replace(strings.TrimPrefix(text, bom)), nil
	}

	return "", &UndecodableFileError{Encodings: r.Encodings()}
}

func decode(e namedEncoding, data []byte) (string, error) {
	if e.name == utf8Name {
		if !utf8.Valid(data) {
			return "", errors.New("invalid utf-8")
		}
		return string(data), nil
	}

	out, err := e.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
