package normalizers

import (
	"regexp"
	"strings"
)

const frankfurtMain = "frankfurt am main"

// cityCorrections maps known misspellings to the canonical city name.
// Only whole values are rewritten.
var cityCorrections = map[string]string{
	"mainz a r":        "mainz",
	"frankfurt a m":    frankfurtMain,
	"frankfurt am":     frankfurtMain,
	"frankfurt a main": frankfurtMain,
	"frankfurt m":      frankfurtMain,
}

// CorrectCity fixes common city spellings and disambiguates a bare
// "frankfurt" using the first digit of the zip code
func CorrectCity(city, zip string) string {
	if fixed, ok := cityCorrections[city]; ok {
		city = fixed
	}
	if city != "frankfurt" {
		return city
	}
	switch {
	case strings.HasPrefix(zip, "1"):
		return "frankfurt oder"
	case strings.HasPrefix(zip, "6"):
		return frankfurtMain
	default:
		return city
	}
}

// houseNumberPatterns are ordered most specific first:
// "12 a 3", "12 a", "12a", "12"
var houseNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\s[a-z0-9]\s\d+`),
	regexp.MustCompile(`\b\d+\s[a-z0-9]\b`),
	regexp.MustCompile(`\d+[a-z]\b`),
	regexp.MustCompile(`\d+`),
}

// ExtractHouseNumber splits a house number embedded in a street value.
// It returns the remaining street and the candidate house number with inner
// spaces removed. The candidate is empty when the street has no digits.
func ExtractHouseNumber(street string) (string, string) {
	candidate := ""
	for _, re := range houseNumberPatterns {
		if m := re.FindString(street); m != "" {
			candidate = RemoveWhitespace(m)
			break
		}
	}
	if candidate == "" {
		return street, ""
	}

	for _, re := range houseNumberPatterns {
		street = re.ReplaceAllString(street, " ")
	}
	return CollapseWhitespace(street), candidate
}

// MergeHouseNumber joins the explicit house number and addendum. When both are
// empty the candidate extracted from the street is used instead.
func MergeHouseNumber(number, addendum, extracted string) string {
	explicit := RemoveWhitespace(number) + RemoveWhitespace(addendum)
	if explicit != "" {
		return explicit
	}
	return extracted
}
