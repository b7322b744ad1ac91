// Package textfile reads source files whose text encoding is not known up front.
//
// Changeset, table and procedure files are frequently edited on machines with
// different locale settings, so a single source tree can mix UTF-8 files with
// files saved in a legacy code page. A Reader holds a prioritized list of
// encodings and decodes each file with the first one that accepts its bytes.
//
// Encoding names are resolved through the WHATWG encoding index provided by
// golang.org/x/text/encoding/htmlindex, so any label a browser understands
// (utf-8, windows-1252, latin1, shift_jis, ...) can be configured. The legacy
// label "ansi" is accepted as an alias of windows-1252.
//
// Basic usage:
//
//	reader, err := textfile.New("utf-8", "windows-1252")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	text, err := reader.ReadFile(os.DirFS("db/tables"), "users.sql")
//	if err != nil {
//		log.Fatal(err)
//	}
package textfile
