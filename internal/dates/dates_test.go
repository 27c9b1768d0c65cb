package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 50, 0, 123_000_000, time.UTC)

	got := DueDate(now)

	assert.Equal(t, "2024-06-02T05:50:00.123+05:30", got)
}

func TestCreateDate(t *testing.T) {
	before := time.Now()
	got := CreateDate()

	parsed, err := time.Parse(time.RFC3339, got)
	require.NoError(t, err)
	_, offset := parsed.Zone()
	assert.Equal(t, 5*3600+1800, offset)
	assert.WithinDuration(t, before.Add(Lead), parsed, 5*time.Second)
}

func TestDay(t *testing.T) {
	assert.Equal(t, "2024-06-02", Day(time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-06-01", Day(time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)))
}
