package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRoundTrip(t *testing.T) {
	for _, s := range []string{"1970-01-01", "2025-08-16", "1969-12-31", "9999-12-31"} {
		t.Run(s, func(t *testing.T) {
			d, err := ParseDate(s)
			require.NoError(t, err)
			assert.Equal(t, s, d.String())
		})
	}
}

func TestDateOrdering(t *testing.T) {
	a := DateOf(2025, time.January, 31)
	b := DateOf(2025, time.February, 1)
	assert.Less(t, a, b)
	assert.Equal(t, b, a.AddDays(1))
	assert.Less(t, b, OpenEnded)
	assert.True(t, OpenEnded.IsOpenEnded())
}

func TestParseDateInvalid(t *testing.T) {
	_, err := ParseDate("16.08.2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestDateFromTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2025, time.August, 16, 1, 30, 0, 0, loc)
	assert.Equal(t, "2025-08-16", DateFromTime(ts).String())
}

func TestDateText(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2025-03-01")))
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", string(b))
}
