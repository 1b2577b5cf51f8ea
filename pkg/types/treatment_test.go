package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	ct, err := ParseClockTime("08:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 8, Minute: 30}, ct)
	assert.Equal(t, "08:30", ct.String())

	_, err = ParseClockTime("24:00")
	assert.Error(t, err)

	_, err = ParseClockTime("08:60")
	assert.Error(t, err)

	_, err = ParseClockTime("0830")
	assert.Error(t, err)
}

func TestParseClockTimes_SortedAscending(t *testing.T) {
	times, err := ParseClockTimes("20:00, 08:00,14:30")

	require.NoError(t, err)
	require.Len(t, times, 3)
	assert.Equal(t, "08:00", times[0].String())
	assert.Equal(t, "14:30", times[1].String())
	assert.Equal(t, "20:00", times[2].String())
}

func TestParseClockTimes_Empty(t *testing.T) {
	times, err := ParseClockTimes("")

	require.NoError(t, err)
	assert.Empty(t, times)
}

func TestParseClockTimes_OneBadEntryFailsAll(t *testing.T) {
	_, err := ParseClockTimes("08:00,99:99")

	assert.Error(t, err)
}

func TestClockTimeOn(t *testing.T) {
	ref := time.Date(2026, 3, 10, 17, 42, 13, 500, time.UTC)
	ct := ClockTime{Hour: 14, Minute: 0}

	instant := ct.On(ref)

	assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), instant)
}

func TestClockTimeJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(ClockTime{Hour: 9, Minute: 5})
	require.NoError(t, err)
	assert.Equal(t, `"09:05"`, string(data))

	var ct ClockTime
	require.NoError(t, json.Unmarshal([]byte(`"21:45"`), &ct))
	assert.Equal(t, ClockTime{Hour: 21, Minute: 45}, ct)

	assert.Error(t, json.Unmarshal([]byte(`"later"`), &ct))
}
