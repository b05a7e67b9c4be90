package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/sentinel"
)

func TestRegistry(t *testing.T) {
	t.Run("chains registered normalizers by name", func(t *testing.T) {
		fn, err := Chain("lowercase", "trim", "remove_punctuation", "strip_titles")
		require.NoError(t, err)
		assert.Equal(t, "hans", fn("  Dr. Hans "))
	})

	t.Run("unknown normalizer is an error", func(t *testing.T) {
		_, err := Chain("trim", "does_not_exist")
		assert.Error(t, err)
	})

	t.Run("custom normalizers can be registered and staged", func(t *testing.T) {
		Register("test_suffix_x", func(s string) string { return s + "x" })
		fn, ok := Get("test_suffix_x")
		require.True(t, ok)
		assert.Equal(t, "ax", fn("a"))

		out, issues := NewPipeline(textStage("test_suffix_x")).Normalize(models.Record{ID: 1, City: models.String("mainz")})
		assert.Empty(t, issues)
		assert.Equal(t, "mainzx", *out.City)
		assert.Nil(t, out.Street)
	})
}

func TestRemovePunctuation(t *testing.T) {
	assert.Equal(t, "o brien smith", RemovePunctuation("o'brien-smith"))
	assert.Equal(t, "a b", RemovePunctuation("a – b"))
	assert.Equal(t, "frankfurt a m", RemovePunctuation("frankfurt a.m."))
}

func TestStripTitles(t *testing.T) {
	assert.Equal(t, "hans", StripTitles("dr hans"))
	assert.Equal(t, "hans", StripTitles("herr dr hans"))
	assert.Equal(t, "hans peter", StripTitles("prof hans peter"))
	assert.Equal(t, "dr", StripTitles("dr"))
	assert.Equal(t, "andrea", StripTitles("andrea"))
}

func TestFolding(t *testing.T) {
	t.Run("umlauts are spelled out", func(t *testing.T) {
		assert.Equal(t, "mueller strasse", FoldUmlauts("müller straße"))
		assert.Equal(t, "koeln", FoldUmlauts("köln"))
	})

	t.Run("accents are dropped", func(t *testing.T) {
		assert.Equal(t, "jose", ASCIIFold("josé"))
		assert.Equal(t, "francois", ASCIIFold("françois"))
	})
}

func TestPadZip(t *testing.T) {
	assert.Equal(t, "00123", PadZip("123"))
	assert.Equal(t, "123456", PadZip("123456"))
	assert.Equal(t, "60311", PadZip("60311"))
}

func TestCorrectCity(t *testing.T) {
	tests := []struct {
		city     string
		zip      string
		expected string
	}{
		{"frankfurt", "15230", "frankfurt oder"},
		{"frankfurt", "60311", "frankfurt am main"},
		{"frankfurt", "80331", "frankfurt"},
		{"frankfurt", "", "frankfurt"},
		{"frankfurt a m", "", "frankfurt am main"},
		{"frankfurt am", "60311", "frankfurt am main"},
		{"frankfurt m", "60311", "frankfurt am main"},
		{"mainz a r", "55116", "mainz"},
		{"berlin", "10115", "berlin"},
	}

	for _, tt := range tests {
		t.Run(tt.city+"/"+tt.zip, func(t *testing.T) {
			assert.Equal(t, tt.expected, CorrectCity(tt.city, tt.zip))
		})
	}
}

func TestExtractHouseNumber(t *testing.T) {
	tests := []struct {
		street         string
		expectedStreet string
		expectedNumber string
	}{
		{"hauptstrasse 12a", "hauptstrasse", "12a"},
		{"hauptstrasse 12 a", "hauptstrasse", "12a"},
		{"weg 12 b 3", "weg", "12b3"},
		{"am ring 5", "am ring", "5"},
		{"hauptstrasse", "hauptstrasse", ""},
	}

	for _, tt := range tests {
		t.Run(tt.street, func(t *testing.T) {
			street, number := ExtractHouseNumber(tt.street)
			assert.Equal(t, tt.expectedStreet, street)
			assert.Equal(t, tt.expectedNumber, number)
		})
	}
}

func TestMergeHouseNumber(t *testing.T) {
	assert.Equal(t, "12a", MergeHouseNumber("12", "a", "99"))
	assert.Equal(t, "12", MergeHouseNumber("1 2", "", ""))
	assert.Equal(t, "99", MergeHouseNumber("", "", "99"))
	assert.Equal(t, "", MergeHouseNumber("", "", ""))
}

func TestCanonicalDate(t *testing.T) {
	for _, in := range []string{"1980-02-01", "01.02.1980", "1980/02/01", "19800201", "1980-02-01 00:00:00"} {
		d, ok := CanonicalDate(in)
		require.True(t, ok, in)
		assert.Equal(t, "1980-02-01", d)
	}

	_, ok := CanonicalDate("0000-00-00")
	assert.False(t, ok)
	_, ok = CanonicalDate("not a date")
	assert.False(t, ok)
}

func TestPipeline_Normalize(t *testing.T) {
	p := DefaultPipeline()

	t.Run("normalizes every field", func(t *testing.T) {
		in := models.Record{
			ID:          7,
			FirstName:   models.String("Dr. Hans"),
			LastName:    models.String("Müller"),
			DateOfBirth: models.String("01.02.1980"),
			Street:      models.String("Hauptstr. 12a"),
			Zip:         models.String("60311"),
			City:        models.String("Frankfurt a.M."),
		}

		out, issues := p.Normalize(in)
		assert.Empty(t, issues)
		assert.Equal(t, int64(7), out.ID)
		assert.Equal(t, "hans", *out.FirstName)
		assert.Equal(t, "mueller", *out.LastName)
		assert.Equal(t, "1980-02-01", *out.DateOfBirth)
		assert.Equal(t, "hauptstrasse", *out.Street)
		assert.Equal(t, "12a", *out.HouseNumber)
		assert.Nil(t, out.HouseNumberAddendum)
		assert.Equal(t, "60311", *out.Zip)
		assert.Equal(t, "frankfurt am main", *out.City)

		// input untouched
		assert.Equal(t, "Dr. Hans", *in.FirstName)
	})

	t.Run("explicit house number wins over the street", func(t *testing.T) {
		out, _ := p.Normalize(models.Record{
			ID:                  1,
			Street:              models.String("Hauptstrasse 99"),
			HouseNumber:         models.String("12"),
			HouseNumberAddendum: models.String(" a"),
		})
		assert.Equal(t, "hauptstrasse", *out.Street)
		assert.Equal(t, "12a", *out.HouseNumber)
	})

	t.Run("empty and malformed values become nil", func(t *testing.T) {
		out, issues := p.Normalize(models.Record{
			ID:          2,
			FirstName:   models.String("   "),
			LastName:    models.String("--"),
			DateOfBirth: models.String("31.31.1980"),
			Zip:         models.String(""),
		})
		assert.Nil(t, out.FirstName)
		assert.Nil(t, out.LastName)
		assert.Nil(t, out.DateOfBirth)
		assert.Nil(t, out.Zip)
		assert.Nil(t, out.HouseNumber)

		require.Len(t, issues, 1)
		assert.Equal(t, errors.KindMalformedField, issues[0].Kind)
		assert.Equal(t, "date_of_birth", issues[0].Field)
		assert.Contains(t, issues[0].Error(), "31.31.1980")
	})

	t.Run("missing dates are not malformed", func(t *testing.T) {
		_, issues := p.Normalize(models.Record{ID: 4, DateOfBirth: models.String("  ")})
		assert.Empty(t, issues)
	})

	t.Run("normalize all reports the record index", func(t *testing.T) {
		out, issues := p.NormalizeAll([]models.Record{
			{ID: 1, DateOfBirth: models.String("1980-01-01")},
			{ID: 2, DateOfBirth: models.String("31.31.1980")},
		})
		require.Len(t, out, 2)
		assert.Equal(t, "1980-01-01", *out[0].DateOfBirth)
		require.Len(t, issues, 1)
		assert.Equal(t, 1, issues[0].Index)
	})

	t.Run("zip padding", func(t *testing.T) {
		out, _ := p.Normalize(models.Record{ID: 3, Zip: models.String("123")})
		assert.Equal(t, "00123", *out.Zip)
		out, _ = p.Normalize(models.Record{ID: 3, Zip: models.String("123456")})
		assert.Equal(t, "123456", *out.Zip)
	})

	t.Run("is idempotent", func(t *testing.T) {
		records := []models.Record{
			{ID: 1, FirstName: models.String("Herr Prof. Jürgen"), LastName: models.String("Groß-Übel"), Street: models.String("Am Ring 12 b 3"), City: models.String("Frankfurt"), Zip: models.String("1523")},
			{ID: 2, FirstName: models.String("José"), Street: models.String("haupt str. 5"), HouseNumberAddendum: models.String("c")},
			{ID: 3, Street: models.String("Lindenstrsse"), City: models.String("Mainz a. R."), DateOfBirth: models.String("1975-12-24")},
			{ID: 4, FirstName: models.String("Dr"), Street: models.String("12")},
		}

		for _, r := range records {
			once, _ := p.Normalize(r)
			twice, _ := p.Normalize(once)
			assert.Equal(t, once, twice, "record %d", r.ID)
		}
	})

	t.Run("placeholder literals do not survive", func(t *testing.T) {
		for _, kind := range []models.ListKind{models.ListCustomer, models.ListNegative, models.ListPositive} {
			m := sentinel.For(kind)
			out, _ := p.Normalize(models.Record{ID: 9, Zip: models.String(m.Value), City: models.String(m.Value), DateOfBirth: models.String(m.Date)})
			assert.NotEqual(t, m.Value, models.Deref(out.Zip), kind)
			assert.NotEqual(t, m.Value, models.Deref(out.City), kind)
			assert.Nil(t, out.DateOfBirth, kind)
		}
	})

	t.Run("stage order is stable", func(t *testing.T) {
		names := p.Stages()
		require.NotEmpty(t, names)
		assert.Equal(t, "date_of_birth", names[0])
		assert.Equal(t, "street_suffix", names[len(names)-1])
	})
}
