package participant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractWithPositionColumn(t *testing.T) {
	cells := []string{"3", "10012345678", " DUPONT ", "Jean  Pierre", "Access 1", "PDL", "5244197 VC ST SEBASTIEN", "Team X"}

	rec, err := Extract(cells, 7)
	require.NoError(t, err)

	assert.Equal(t, "10012345678", rec.UCIID)
	assert.Equal(t, "DUPONT", rec.LastName)
	assert.Equal(t, "Jean Pierre", rec.FirstName)
	assert.Equal(t, "Access 1", rec.Category)
	assert.Equal(t, "PDL", rec.Region)
	assert.Equal(t, "5244197 VC ST SEBASTIEN", rec.ClubRaw)
	assert.Equal(t, "VC ST SEBASTIEN", rec.Club)
	assert.Equal(t, "Team X", rec.Team)
	assert.Equal(t, 3, rec.Rank)
	assert.Equal(t, cells, rec.RawData)
}

func TestExtractWithoutPositionColumn(t *testing.T) {
	cells := []string{"10012345678", "MARTIN", "Luc", "A2", "PDL", "UC NANTES"}

	rec, err := Extract(cells, 4)
	require.NoError(t, err)

	assert.Equal(t, "10012345678", rec.UCIID)
	assert.Equal(t, "MARTIN", rec.LastName)
	assert.Equal(t, "Luc", rec.FirstName)
	assert.Equal(t, "UC NANTES", rec.Club)
	assert.Equal(t, "", rec.Team)
	assert.Equal(t, 4, rec.Rank)
}

func TestExtractEmptyPositionCell(t *testing.T) {
	rec, err := Extract([]string{" ", "10099", "LEROY", "Paul", "U17"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "10099", rec.UCIID)
	assert.Equal(t, 2, rec.Rank)
}

func TestExtractRankFallback(t *testing.T) {
	rec, err := Extract([]string{"DNF", "10011", "BERNARD", "Marc", "A1"}, 5)
	require.NoError(t, err)
	assert.Equal(t, "10011", rec.UCIID)
	assert.Equal(t, 5, rec.Rank)

	rec, err = Extract([]string{"", "10012", "BERNARD", "Marc", "A1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Rank)
}

func TestExtractRejects(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  error
	}{
		{"spacer row", []string{"", ""}, ErrTooFewCells},
		{"no identity", []string{"", "", "", ""}, ErrMissingIdentity},
		{"header keywords", []string{"Pos", "UCI ID", "Nom", "Prenom", "Cat"}, ErrHeaderRow},
		{"header without position", []string{"UCI ID", "Name", "Rider", "Cat"}, ErrHeaderRow},
		{"accented header", []string{"", "", "NOM", "Prénom", "Cat"}, ErrHeaderRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.cells, 1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractAnonymousIdentity(t *testing.T) {
	cells := []string{"12", "", "PETIT", "Anne", "A3", "PDL", "VC CHOLET"}

	a, err := Extract(cells, 1)
	require.NoError(t, err)
	b, err := Extract(cells, 9)
	require.NoError(t, err)

	assert.True(t, IsAnonymous(a.UCIID))
	assert.Equal(t, a.UCIID, b.UCIID)
	assert.Len(t, a.UCIID, len("anon_")+12)
	assert.False(t, IsAnonymous("10012345678"))
}

func TestCleanClub(t *testing.T) {
	club, ok := CleanClub("5244197 VC ST SEBASTIEN")
	assert.True(t, ok)
	assert.Equal(t, "VC ST SEBASTIEN", club)

	club, ok = CleanClub("")
	assert.False(t, ok)
	assert.Equal(t, "", club)

	club, ok = CleanClub("123")
	assert.True(t, ok)
	assert.Equal(t, "123", club)

	club, ok = CleanClub("  AC ANGERS ")
	assert.True(t, ok)
	assert.Equal(t, "AC ANGERS", club)
}
