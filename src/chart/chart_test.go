package chart

import (
	"bytes"
	"strings"
	"testing"

	"GamesMarketDash/src/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLabels = Labels{Title: "Releases", X: "Year", Y: "Count", Empty: "No data"}

func TestStack(t *testing.T) {
	releases := []processor.Release{
		{Year: 2004, Platform: "PC", Count: 1},
		{Year: 2004, Platform: "PS2", Count: 2},
		{Year: 2006, Platform: "PS2", Count: 3},
	}

	want := []Band{
		{Year: 2004, Platform: "PC", Lower: 0, Upper: 1},
		{Year: 2006, Platform: "PC", Lower: 0, Upper: 0},
		{Year: 2004, Platform: "PS2", Lower: 1, Upper: 3},
		{Year: 2006, Platform: "PS2", Lower: 0, Upper: 3},
	}
	assert.Equal(t, want, Stack(releases))
}

func TestStackTopEqualsYearTotal(t *testing.T) {
	releases := []processor.Release{
		{Year: 2001, Platform: "GBA", Count: 4},
		{Year: 2001, Platform: "PS2", Count: 7},
		{Year: 2001, Platform: "XB", Count: 2},
		{Year: 2002, Platform: "XB", Count: 5},
	}
	top := map[int]int{}
	for _, b := range Stack(releases) {
		assert.LessOrEqual(t, b.Lower, b.Upper)
		if b.Upper > top[b.Year] {
			top[b.Year] = b.Upper
		}
	}
	assert.Equal(t, map[int]int{2001: 13, 2002: 5}, top)
}

func TestReleasesSVG(t *testing.T) {
	var buf bytes.Buffer
	err := Releases(&buf, []processor.Release{
		{Year: 2004, Platform: "PC", Count: 1},
		{Year: 2005, Platform: "PC", Count: 4},
		{Year: 2005, Platform: "PS2", Count: 2},
	}, testLabels, DefaultWidth, DefaultHeight)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<svg")
	assert.NotContains(t, buf.String(), "No data")
}

func TestScoresSVG(t *testing.T) {
	var buf bytes.Buffer
	err := Scores(&buf, []processor.ScorePoint{
		{UserScore: 6.1, CriticScore: processor.NewScore(70), Genre: "Action"},
		{UserScore: 7.5, Genre: "Action"},
		{UserScore: 8.2, CriticScore: processor.NewScore(88), Genre: "Sports"},
	}, Labels{Title: "Scores", X: "User", Y: "Critic", Empty: "No data"}, DefaultWidth, DefaultHeight)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<svg")
}

func TestEmptyChartsRenderPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Releases(&buf, nil, testLabels, 300, 200))
	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Contains(t, out, "No data")
	assert.Contains(t, out, "Releases")

	buf.Reset()
	onlyMissing := []processor.ScorePoint{{UserScore: 5, Genre: "Puzzle"}}
	require.NoError(t, Scores(&buf, onlyMissing, testLabels, 300, 200))
	assert.Contains(t, buf.String(), "No data")
}

func TestLabelColumns(t *testing.T) {
	x, y, legend := Labels{X: "Года", Y: "Кол-во", Legend: "Платформа"}.columns("year", "releases", "platform")
	assert.Equal(t, []string{"Года", "Кол-во", "Платформа"}, []string{x, y, legend})

	x, y, legend = Labels{}.columns("year", "releases", "platform")
	assert.Equal(t, []string{"year", "releases", "platform"}, []string{x, y, legend})

	// 重名时退回默认列名
	x, y, legend = Labels{X: "A", Y: "A", Legend: "A"}.columns("year", "releases", "platform")
	assert.Equal(t, []string{"A", "releases", "platform"}, []string{x, y, legend})
}
