package main

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// serverCharset returns the single byte charset the server uses for names.
// An empty name or utf-8 means strings are passed through unchanged.
func serverCharset(name string) (*charmap.Charmap, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "latin9", "iso-8859-15":
		return charmap.ISO8859_15, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251, nil
	case "koi8-r":
		return charmap.KOI8R, nil
	case "macroman", "macintosh":
		return charmap.Macintosh, nil
	}
	return nil, fmt.Errorf("unknown server encoding %q", name)
}
