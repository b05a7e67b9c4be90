// Package normalizers provides field normalization functions for record linkage
package normalizers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("remove_punctuation", RemovePunctuation)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("remove_whitespace", RemoveWhitespace)
	Register("strip_titles", StripTitles)
	Register("fold_umlauts", FoldUmlauts)
	Register("ascii_fold", ASCIIFold)
	Register("pad_zip", PadZip)
	Register("street_suffix", CanonicalStreetSuffix)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Chain resolves registered normalizers into one that applies them in order
func Chain(names ...string) (Normalizer, error) {
	chain := make([]Normalizer, 0, len(names))
	for _, name := range names {
		fn, ok := Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown normalizer %q", name)
		}
		chain = append(chain, fn)
	}
	return func(s string) string {
		for _, fn := range chain {
			s = fn(s)
		}
		return s
	}, nil
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// punctuation is replaced by a single space. The en dash is included since
// it shows up in pasted street names.
const punctuation = "!\"#%&'()*+,-./:;<=>?@[\\]^_`{|}~–"

// RemovePunctuation replaces punctuation with spaces and collapses whitespace
func RemovePunctuation(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, s)
	return CollapseWhitespace(s)
}

// CollapseWhitespace joins whitespace-separated tokens with single spaces
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RemoveWhitespace removes all whitespace characters
func RemoveWhitespace(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

var titles = map[string]bool{
	"mr":        true,
	"mrs":       true,
	"ms":        true,
	"miss":      true,
	"master":    true,
	"professor": true,
	"dr":        true,
	"herr":      true,
	"frau":      true,
	"prof":      true,
}

// StripTitles drops leading honorific tokens ("dr", "herr", "prof", ...).
// A name consisting of a single token is left alone.
func StripTitles(s string) string {
	tokens := strings.Fields(s)
	for len(tokens) > 1 && titles[tokens[0]] {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}

var umlauts = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// FoldUmlauts spells out German umlauts and sharp s. It must run before
// ASCIIFold, which would otherwise reduce ä to a.
func FoldUmlauts(s string) string {
	return umlauts.Replace(s)
}

// ASCIIFold decomposes to NFKD and drops everything outside ASCII
func ASCIIFold(s string) string {
	// transform chains carry state, so one is built per call
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return CollapseWhitespace(result)
}

// PadZip left-pads a zip code with zeros to five characters
func PadZip(s string) string {
	if len(s) >= 5 {
		return s
	}
	return strings.Repeat("0", 5-len(s)) + s
}

var streetSuffixRe = regexp.MustCompile(`\s?(str|strsse|srasse)$`)

// CanonicalStreetSuffix rewrites abbreviated and misspelled street suffixes
// ("haupt str", "hauptstr", "hauptstrsse") to "strasse"
func CanonicalStreetSuffix(s string) string {
	return streetSuffixRe.ReplaceAllString(s, "strasse")
}
