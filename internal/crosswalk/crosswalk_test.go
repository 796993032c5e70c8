package crosswalk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commareas/internal/tablefile"
	"commareas/internal/types"
)

func TestBuild(t *testing.T) {
	xw, err := Build(
		[]TractArea{{"10100", "1"}, {"010200", "1"}, {"90100", "2"}},
		[]AreaLabel{{"1", "Albany Park"}, {"2", "Archer Heights"}},
	)
	require.NoError(t, err)

	area, ok := xw.Area("010100")
	require.True(t, ok)
	assert.Equal(t, types.AreaID("1"), area)

	area, ok = xw.Area("090100")
	require.True(t, ok)
	assert.Equal(t, types.AreaID("2"), area)

	_, ok = xw.Area("999999")
	assert.False(t, ok)

	name, ok := xw.Name("2")
	require.True(t, ok)
	assert.Equal(t, types.AreaName("Archer Heights"), name)

	tracts, areas := xw.Len()
	assert.Equal(t, 3, tracts)
	assert.Equal(t, 2, areas)
}

func TestBuildRejectsMalformedTract(t *testing.T) {
	_, err := Build([]TractArea{{"010100", "1"}, {"1234", "1"}}, nil)
	require.ErrorIs(t, err, types.ErrMalformedTract)
	assert.Contains(t, err.Error(), "row 2")
}

func TestBuildLaterRowWins(t *testing.T) {
	xw, err := Build([]TractArea{{"010100", "1"}, {"010100", "3"}}, nil)
	require.NoError(t, err)
	area, _ := xw.Area("010100")
	assert.Equal(t, types.AreaID("3"), area)
}

func TestTractAreasFromRecords(t *testing.T) {
	records := []tablefile.Record{{"TRACT": "10100", "CA": "1", "OTHER": "x"}}

	got, err := TractAreasFromRecords(records, Fields{Tract: "TRACT", Area: "CA"})
	require.NoError(t, err)
	assert.Equal(t, []TractArea{{Tract: "10100", Area: "1"}}, got)

	_, err = TractAreasFromRecords(records, DefaultFields())
	require.Error(t, err)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	tractPath := filepath.Join(dir, "tracts.csv")
	namesPath := filepath.Join(dir, "names.csv")
	require.NoError(t, os.WriteFile(tractPath, []byte("TRACTCE10,COMMAREA\n10100,1\n090100,2\n"), 0o600))
	require.NoError(t, os.WriteFile(namesPath, []byte("Community Area Number,COMMUNITY AREA NAME\n1,Albany Park\n2,Archer Heights\n"), 0o600))

	xw, err := LoadFiles(tractPath, namesPath, DefaultFields())
	require.NoError(t, err)

	area, ok := xw.Area("010100")
	require.True(t, ok)
	name, ok := xw.Name(area)
	require.True(t, ok)
	assert.Equal(t, types.AreaName("Albany Park"), name)
}

func TestLoadFilesMissingNameColumn(t *testing.T) {
	dir := t.TempDir()
	tractPath := filepath.Join(dir, "tracts.csv")
	namesPath := filepath.Join(dir, "names.csv")
	require.NoError(t, os.WriteFile(tractPath, []byte("TRACTCE10,COMMAREA\n10100,1\n"), 0o600))
	require.NoError(t, os.WriteFile(namesPath, []byte("ID,NAME\n1,Albany Park\n"), 0o600))

	_, err := LoadFiles(tractPath, namesPath, DefaultFields())
	require.Error(t, err)
}
