package census

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commareas/internal/types"
)

type memCache struct {
	entries map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	body, ok := m.entries[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return body, nil
}

func (m *memCache) Put(_ context.Context, key string, body []byte) error {
	m.entries[key] = body
	return nil
}

func TestRequestURL(t *testing.T) {
	c := NewClient(Config{
		BaseURL: "http://api.census.gov/data/",
		Year:    "2014",
		Dataset: "/acs5",
		State:   "17",
		County:  "031",
		Key:     "secret",
	})

	got := c.RequestURL([]types.VariableCode{"B03002_001E", "B03002_002E"})
	assert.Equal(t,
		"http://api.census.gov/data/2014/acs5?get=NAME,B03002_001E,B03002_002E&for=tract:*&in=state:17+county:031&key=secret",
		got)

	noKey := NewClient(Config{State: "17", County: "031"})
	assert.Equal(t,
		"https://api.census.gov/data/2014/acs5?get=NAME,B03002_001E&for=tract:*&in=state:17+county:031",
		noKey.RequestURL([]types.VariableCode{"B03002_001E"}))
}

func TestFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[["NAME","B03002_001E","state","county","tract"],`+
			`["Census Tract 101","100","17","031","010100"],`+
			`["Census Tract 102",null,"17","031","010200"],`+
			`["Census Tract 103",42,"17","031","010300"]]`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", Year: "2014", Dataset: "/acs5", State: "17", County: "031", Key: "k"})
	payload, err := c.Fetch(context.Background(), []types.VariableCode{"B03002_001E"})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "get=NAME,B03002_001E")
	assert.Contains(t, gotQuery, "key=k")
	assert.Equal(t, []string{"NAME", "B03002_001E", "state", "county", "tract"}, payload.Header())

	rows := payload.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "100", *rows[0][1])
	assert.Nil(t, rows[1][1])
	assert.Equal(t, "42", *rows[2][1])
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "error: unknown variable 'B99999_001E'")
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", RetryMax: 0})
	_, err := c.Fetch(context.Background(), []types.VariableCode{"B99999_001E"})
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "unknown variable")
}

func TestFetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"})
	_, err := c.Fetch(context.Background(), []types.VariableCode{"B03002_001E"})
	require.Error(t, err)
}

func TestFetchEmptyBatch(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.Fetch(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestFetchUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `[["B03002_001E","tract"],["7","010100"]]`)
	}))
	defer srv.Close()

	cache := &memCache{entries: make(map[string][]byte)}
	c := NewClient(Config{BaseURL: srv.URL + "/", State: "17", County: "031", Key: "secret"}, WithCache(cache))
	batch := []types.VariableCode{"B03002_001E"}

	first, err := c.Fetch(context.Background(), batch)
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, hits.Load())
	require.Len(t, cache.entries, 1)
	for key := range cache.entries {
		assert.False(t, strings.Contains(key, "secret"), "cache key must not carry the api key")
	}
}

func TestDecode(t *testing.T) {
	payload, err := Decode(strings.NewReader(`[["a","b"],[null,1.5]]`))
	require.NoError(t, err)
	assert.Nil(t, payload[1][0])
	assert.Equal(t, "1.5", *payload[1][1])

	_, err = Decode(strings.NewReader(`{"a":1}`))
	require.Error(t, err)
}
