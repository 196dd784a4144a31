package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Bool(true)
	var _ Value = NewNumberFromInt(1)
	var _ Value = Text("x")
	var _ Value = Minutes(0)
	var _ Value = Choices{}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"bool", KindBool},
		{"float", KindNumeric},
		{"numeric", KindNumeric},
		{"str", KindText},
		{"text", KindText},
		{"time", KindTimeOfDay},
		{"choice", KindChoice},
		{"strlist", KindChoice},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k)
		})
	}

	_, err := ParseKind("list")
	require.Error(t, err)
}

func TestParseValueInverseOfString(t *testing.T) {
	values := []Value{
		Bool(true),
		Bool(false),
		NewNumberFromInt(8000),
		NewNumber(7.5),
		Text("тренировка"),
		Minutes(420),
		Minutes(1530),
		Choices{{Value: "calm", Reward: 2}, {Value: "a=b", Reward: -1}},
	}
	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			got, err := ParseValue(v.Kind(), v.String())
			require.NoError(t, err)
			assert.Equal(t, v.Kind(), got.Kind())
			assert.Equal(t, v.String(), got.String())
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want Minutes
	}{
		{"07:00", 420},
		{"7:30", 450},
		{"23:59", 1439},
		{"01:30+1", 1530},
		{"25:30", 1530},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "7", "07:60", "48:00", "07:00+x"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestMinutesString(t *testing.T) {
	assert.Equal(t, "07:05", Minutes(425).String())
	assert.Equal(t, "00:15+1", Minutes(1455).String())
}

func TestClockOfNextDay(t *testing.T) {
	day := DateOf(2025, time.August, 16)
	evening := time.Date(2025, time.August, 16, 23, 10, 0, 0, time.UTC)
	afterMidnight := time.Date(2025, time.August, 17, 0, 40, 0, 0, time.UTC)

	assert.Equal(t, Minutes(23*60+10), ClockOf(evening, day))
	assert.Equal(t, Minutes(1440+40), ClockOf(afterMidnight, day))
	assert.Less(t, ClockOf(evening, day), ClockOf(afterMidnight, day))
}

func TestNumberExactComparison(t *testing.T) {
	a, err := ParseNumber("0.3")
	require.NoError(t, err)
	b := NewNumber(0.1 + 0.2)
	c, err := ParseNumber("0.30")
	require.NoError(t, err)

	assert.Equal(t, 0, a.Cmp(c))
	assert.NotEqual(t, 0, a.Cmp(b), "float sums must not silently equal decimal literals")
}

func TestValueOf(t *testing.T) {
	v, err := ValueOf(true)
	require.NoError(t, err)
	assert.Equal(t, Bool(true), v)

	v, err = ValueOf(42)
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, v.Kind())
	assert.Equal(t, "42", v.String())

	v, err = ValueOf(2.5)
	require.NoError(t, err)
	assert.Equal(t, "2.5", v.String())

	v, err = ValueOf("yes")
	require.NoError(t, err)
	assert.Equal(t, Text("yes"), v)

	_, err = ValueOf(nil)
	require.Error(t, err)
	_, err = ValueOf([]string{"a"})
	require.Error(t, err)
}

func TestKindObserved(t *testing.T) {
	assert.Equal(t, KindText, KindChoice.Observed())
	assert.Equal(t, KindNumeric, KindNumeric.Observed())
}

func TestInferText(t *testing.T) {
	assert.Equal(t, Minutes(450), InferText("07:30"))
	assert.Equal(t, Minutes(1470), InferText("00:30+1"))
	assert.Equal(t, Text("99:99"), InferText("99:99"))
	assert.Equal(t, Text("calm"), InferText(" calm "))
}

func TestChoices(t *testing.T) {
	c, err := ParseChoices("calm=2|focused=3|tired=-1")
	require.NoError(t, err)
	require.Len(t, c, 3)
	assert.Equal(t, 3, c.Best())

	reward, ok := c.Lookup("tired")
	assert.True(t, ok)
	assert.Equal(t, -1, reward)
	_, ok = c.Lookup("angry")
	assert.False(t, ok)

	assert.Equal(t, -1, Choices{{Value: "tired", Reward: -1}}.Best())

	for _, bad := range []string{"", "calm", "calm=x", "calm=1|calm=2", "=1"} {
		_, err := ParseChoices(bad)
		assert.Error(t, err, bad)
	}
}
