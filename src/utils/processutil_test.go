package utils

import (
	"bytes"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseYear(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"2010", 2010, false},
		{" 2001 ", 2001, false},
		{"2010.0", 2010, false},
		{"2010.5", 0, true},
		{"N/A", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		el := series.New([]string{c.in}, series.String, "y").Elem(0)
		got, err := ParseYear(el)
		if c.wantErr {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got)
	}
}

func TestParseYearNA(t *testing.T) {
	el := series.New([]string{"NaN"}, series.String, "y").Elem(0)
	_, err := ParseYear(el)
	assert.Error(t, err)
}

func TestHasColumn(t *testing.T) {
	df := dataframe.New(series.New([]string{"a"}, series.String, "Name"))
	assert.True(t, HasColumn(df, "Name"))
	assert.False(t, HasColumn(df, "Genre"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"E", "T"}, "T"))
	assert.False(t, Contains([]int{1, 2}, 3))
}

func TestWriteExcel(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"Alpha", "Beta"}, series.String, "Name"),
		series.New([]string{"80", "NaN"}, series.Float, "Critic_Score"),
	)

	var buf bytes.Buffer
	require.NoError(t, WriteExcel(df, &buf, "games"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("games")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Critic_Score"}, rows[0])
	assert.Equal(t, []string{"Alpha", "80"}, rows[1])
	assert.Equal(t, []string{"Beta"}, rows[2])
}
