package frdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain french", "25 mai 2024", "25 mai 2024"},
		{"capitalised month", "Samedi 25 Mai 2024", "25 mai 2024"},
		{"spaced range", "Du 25 Mai au 26 Mai 2024", "25 mai 2024"},
		{"range sharing month", "du 6 au 7 juillet 2024", "6 juillet 2024"},
		{"packed range", "u 25 Maiau 26 Mai2024", "25 mai 2024"},
		{"english abbreviation", "14 Sep 2024", "14 septembre 2024"},
		{"short french", "3 aoû 2023", "3 août 2023"},
		{"short french with dot", "12 janv. 2025", "12 janvier 2025"},
		{"accented upper case", "1 FÉVRIER 2025", "1 février 2025"},
		{"premier", "1er juin 2024", "1 juin 2024"},
		{"extra whitespace", "  25\n\t mai   2024 ", "25 mai 2024"},
		{"slashes", "Course du 25/05/2024", "25/05/2024"},
		{"iso", "2024-05-25", "2024-05-25"},
		{"unmatched text kept", "  date à   confirmer ", "date à confirmer"},
		{"unmatched text keeps expanded months", "Sep 14 2024", "septembre 14 2024"},
		{"empty", "", Unknown},
		{"blank", " \n ", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestExtractReportsMisses(t *testing.T) {
	_, ok := Extract("Grand Prix de Nantes")
	assert.False(t, ok)

	d, ok := Extract("Résultats - 8 sept 2024 - Nantes")
	require.True(t, ok)
	assert.Equal(t, "8 septembre 2024", d)
}

func TestExpandMonthsLeavesOtherWordsAlone(t *testing.T) {
	assert.Equal(t, "Mardi 3 mars", expandMonths("Mardi 3 Mar"))
	assert.Equal(t, "Marseille", expandMonths("Marseille"))
	assert.Equal(t, "Maiau", expandMonths("Maiau"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"25 mai 2024", time.Date(2024, time.May, 25, 0, 0, 0, 0, time.UTC)},
		{"1 décembre 2023", time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)},
		{"25/05/2024", time.Date(2024, time.May, 25, 0, 0, 0, 0, time.UTC)},
		{"2024-05-25", time.Date(2024, time.May, 25, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	for _, bad := range []string{Unknown, "", "31 février 2024", "soon"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrUnparsable, bad)
	}
}
