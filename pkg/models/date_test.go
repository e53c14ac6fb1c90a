package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), d.Time)

	d, err = ParseDate("2026-03-14T22:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), d.Time)

	_, err = ParseDate("14/03/2026")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	var body struct {
		Due  *Date `json:"due"`
		Skip *Date `json:"skip"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2026-03-14","skip":null}`), &body))
	require.NotNil(t, body.Due)
	assert.Nil(t, body.Skip)

	out, err := json.Marshal(body.Due)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-14"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"due":"soon"}`), &body))
}

func TestDate_TimePtr(t *testing.T) {
	var missing *Date
	assert.Nil(t, missing.TimePtr())

	d := Date{Time: time.Date(2026, 3, 14, 18, 45, 0, 0, time.UTC)}
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), *d.TimePtr())
}
