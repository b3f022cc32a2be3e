package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeMarshalWholeSeconds(t *testing.T) {
	ts := NewTime(time.Date(2024, time.January, 10, 8, 30, 15, 123456789, time.UTC))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-10T08:30:15Z"`, string(data))
}

func TestTimeUnmarshalAcceptsFractionalSeconds(t *testing.T) {
	var ts Time
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-10T08:30:15.750Z"`), &ts))
	assert.Equal(t, time.Date(2024, time.January, 10, 8, 30, 15, 0, time.UTC), ts.Time)
}

func TestTimeUnmarshalBareDate(t *testing.T) {
	var ts Time
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-17"`), &ts))
	assert.Equal(t, time.Date(2024, time.January, 17, 0, 0, 0, 0, time.UTC), ts.Time)
}

func TestTimeNullRoundTrip(t *testing.T) {
	sess := WorkSession{
		EmployeeName: "maria",
		StartTime:    NewTime(time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)),
	}

	data, err := json.Marshal(sess)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"endTime":null`)

	var decoded WorkSession
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded.EndTime)
	assert.True(t, decoded.Open())
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	_, err := ParseTime("not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
