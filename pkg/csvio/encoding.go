package csvio

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts raw input to UTF-8. A byte order mark selects UTF-8 or
// UTF-16 and is stripped. Input without a BOM that is not valid UTF-8 is
// read as Latin-1.
func Decode(data []byte) ([]byte, string, error) {
	switch {
	case len(data) >= 2 && (data[0] == 0xFF && data[1] == 0xFE || data[0] == 0xFE && data[1] == 0xFF):
		out, _, err := transform.Bytes(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder(), data)
		if err != nil {
			return nil, "", errors.Wrap(err, "utf-16 decode failed")
		}
		return out, "utf-16", nil
	case len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF:
		return data[3:], "utf-8-bom", nil
	case utf8.Valid(data):
		return data, "utf-8", nil
	}

	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return nil, "", errors.Wrap(err, "latin-1 decode failed")
	}
	return out, "latin-1", nil
}
