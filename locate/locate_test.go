package locate

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/cyclingapi/config"
)

var testSelectors = config.Selectors{
	Links: []string{`a[class*="card-result"]`},
	Title: []string{"h1", ".header-race__title"},
	Date:  []string{".header-race__date", ".race-date", "time"},
	Table: []string{"table.results", `table[class*="result"]`, `table[class*="classement"]`, "table"},
}

func newDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newLocator(t *testing.T) *Locator {
	t.Helper()
	l, err := New("https://paysdelaloirecyclisme.fr", "/resultats/", testSelectors)
	require.NoError(t, err)
	return l
}

const listingHTML = `<html><body>
<a class="card-result" href="/resultats/gp-de-nantes/">
  <h3 class="card-result__title">GP de  Nantes</h3>
  <span class="card-result__date">Samedi 25 Mai 2024</span>
  <span class="card-result__location">Nantes</span>
  <span class="card-result__categories">Access 1-2</span>
</a>
<a class="card-result card-result--big" href="https://paysdelaloirecyclisme.fr/resultats/tour-44/#top">
  <h3>Tour 44</h3>
  <p>Du 6 au 7 juillet 2024</p>
</a>
<a class="card-result" href="/resultats/gp-de-nantes/">duplicate</a>
<a class="card-result" href="/actualites/news/">not a race</a>
<a class="card-result">no href</a>
</body></html>`

func TestCards(t *testing.T) {
	cards := newLocator(t).Cards(newDoc(t, listingHTML))
	require.Len(t, cards, 2)

	assert.Equal(t, Card{
		URL:        "https://paysdelaloirecyclisme.fr/resultats/gp-de-nantes/",
		Name:       "GP de Nantes",
		RawDate:    "Samedi 25 Mai 2024",
		Location:   "Nantes",
		Categories: "Access 1-2",
	}, cards[0])

	assert.Equal(t, "https://paysdelaloirecyclisme.fr/resultats/tour-44/", cards[1].URL)
	assert.Equal(t, "Tour 44", cards[1].Name)
	assert.Equal(t, "6 juillet 2024", cards[1].RawDate)
}

const raceHTML = `<html><body>
<div class="header-race">
  <h1 class="header-race__title"> Grand Prix  de Cholet </h1>
  <p class="race-date">à confirmer</p>
  <p class="header-race__date">Dimanche 2 juin 2024</p>
</div>
<table class="menu"><tr><td>x</td></tr></table>
<table class="table-results">
  <tr><th>Pos</th><th>UCI</th><th>Nom</th><th>Prénom</th></tr>
  <tr><td>1</td><td>100</td><td>DUPONT</td><td>Jean</td></tr>
  <tr><td>2</td><td>101</td><td> MARTIN </td><td>Luc</td></tr>
</table>
</body></html>`

func TestDetailPage(t *testing.T) {
	l := newLocator(t)
	doc := newDoc(t, raceHTML)

	title, ok := l.Title(doc)
	require.True(t, ok)
	assert.Equal(t, "Grand Prix de Cholet", title)

	date, ok := l.DateText(doc)
	require.True(t, ok)
	assert.Equal(t, "Dimanche 2 juin 2024", date)

	table, ok := l.ResultsTable(doc)
	require.True(t, ok)
	assert.Equal(t, "table-results", table.AttrOr("class", ""))

	rows := Rows(table)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Pos", "UCI", "Nom", "Prénom"}, rows[0])
	assert.Equal(t, []string{"2", "101", "MARTIN", "Luc"}, rows[2])
	assert.Equal(t, 2, TableCount(doc))
}

func TestDetailPageAbsence(t *testing.T) {
	l := newLocator(t)
	doc := newDoc(t, `<html><body><p>Pas de résultats</p></body></html>`)

	_, ok := l.Title(doc)
	assert.False(t, ok)
	_, ok = l.DateText(doc)
	assert.False(t, ok)
	_, ok = l.ResultsTable(doc)
	assert.False(t, ok)
	assert.Empty(t, Stages(doc))
}

func TestDateTextFallsBackToFirstText(t *testing.T) {
	doc := newDoc(t, `<html><body><p class="race-date"> date  à confirmer </p></body></html>`)
	date, ok := newLocator(t).DateText(doc)
	require.True(t, ok)
	assert.Equal(t, "date à confirmer", date)
}

func TestIsStageLabel(t *testing.T) {
	matches := []string{
		"Étape 1", "etape 2", "ETAPE 3 - contre la montre", "Classement: Access 1 & 2",
		"ACCESS 3-4", "A1-A2", "Access 1 2", "Access 3.4", "access 2", "A1", "A1/2", "U7", "U-11", "U 15",
	}
	for _, m := range matches {
		assert.True(t, IsStageLabel(m), m)
	}
	for _, m := range []string{"Open 1", "Elite", "Général", "Départ 14h", "Grand Prix", "Tour a 3 km", "Boucle A 2 tours", "arrivée à 2 km"} {
		assert.False(t, IsStageLabel(m), m)
	}
}

const stagesHTML = `<html><body>
<h1>Tour 44</h1>
<select class="select-ranking">
  <option value="">Choisir</option>
  <option value="#ranking1">Étape 1</option>
  <option value="#ranking2">Étape 2</option>
  <option value="#ranking2">Étape 2 (bis)</option>
</select>
<div id="ranking1"><table class="results"><tr><th>h</th></tr><tr><td>a</td></tr></table></div>
<div class="tab tab-ranking2"><table class="results"><tr><th>h</th></tr><tr><td>b</td></tr></table></div>
</body></html>`

func TestStages(t *testing.T) {
	l := newLocator(t)
	doc := newDoc(t, stagesHTML)

	stages := Stages(doc)
	require.Equal(t, []Stage{
		{Label: "Étape 1", Payload: "ranking1"},
		{Label: "Étape 2", Payload: "ranking2"},
	}, stages)

	t1, ok := l.StageTable(doc, "ranking1")
	require.True(t, ok)
	assert.Equal(t, "a", Rows(t1)[1][0])

	t2, ok := l.StageTable(doc, "ranking2")
	require.True(t, ok)
	assert.Equal(t, "b", Rows(t2)[1][0])

	_, ok = l.StageTable(doc, "ranking9")
	assert.False(t, ok)
	_, ok = l.StageTable(doc, "")
	assert.False(t, ok)
}

func TestStagesFromListItems(t *testing.T) {
	doc := newDoc(t, `<html><body>
<ul class="nav">
  <li><a href="/resultats/">Résultats</a></li>
  <li><a href="#cat-a12">Access 1-2</a></li>
  <li data-tab="cat-u15">U 15</li>
</ul>
<div data-panel="panel-cat-a12"><table><tr><th>h</th></tr><tr><td>x</td></tr></table></div>
</body></html>`)

	stages := Stages(doc)
	require.Len(t, stages, 2)
	assert.Equal(t, Stage{Label: "Access 1-2", Payload: "cat-a12"}, stages[0])
	assert.Equal(t, Stage{Label: "U 15", Payload: "cat-u15"}, stages[1])

	// only the attribute scan can find this container
	table, ok := newLocator(t).StageTable(doc, "cat-a12")
	require.True(t, ok)
	assert.Equal(t, "x", Rows(table)[1][0])
}
