package tablefile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	input := "\ufeffTRACTCE10, COMMAREA\n10100,1\n 010200 ,1\n090100\n"

	var got []Record
	err := Read(strings.NewReader(input), Options{}, func(rec Record) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Record{"TRACTCE10": "10100", "COMMAREA": "1"}, got[0])
	assert.Equal(t, "010200", got[1]["TRACTCE10"])
	assert.Equal(t, "", got[2]["COMMAREA"])
}

func TestReadPipeDelimited(t *testing.T) {
	input := "Name|Label\nB03002_001E|Total\n"

	var got []Record
	err := Read(strings.NewReader(input), Options{Comma: '|'}, func(rec Record) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Record{{"Name": "B03002_001E", "Label": "Total"}}, got)
}

func TestReadEmpty(t *testing.T) {
	err := Read(strings.NewReader(""), Options{}, func(Record) error { return nil })
	require.Error(t, err)
}

func TestReadStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Read(strings.NewReader("a\n1\n2\n"), Options{}, func(Record) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.csv")
	require.NoError(t, os.WriteFile(path, []byte("Community Area Number,COMMUNITY AREA NAME\n14,Albany Park\n"), 0o600))

	records, err := ReadAll(path, Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Albany Park", records[0]["COMMUNITY AREA NAME"])

	_, err = ReadAll(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.Error(t, err)
}

func TestReadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "B03002.csv")
	content := "Community Area ID,Community Area Name,B03002_001E: Total:\n14,Albany Park,150\n57,Archer Heights\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	header, rows, err := ReadRows(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Community Area ID", "Community Area Name", "B03002_001E: Total:"}, header)
	assert.Equal(t, [][]string{
		{"14", "Albany Park", "150"},
		{"57", "Archer Heights", ""},
	}, rows)

	_, _, err = ReadRows(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.Error(t, err)
}
