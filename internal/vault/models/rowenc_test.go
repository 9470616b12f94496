package models

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeTime(t *testing.T) {
	in := time.Date(2026, 8, 1, 12, 34, 56, 789000000, time.FixedZone("CEST", 2*3600))

	s := EncodeTime(in)
	got, err := DecodeTime(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(got))
	assert.Equal(t, time.UTC, got.Location())
}

func TestEncodeTime_LexicographicOrder(t *testing.T) {
	// Column values must sort chronologically as strings, including
	// sub-second boundaries, so ORDER BY is correct.
	times := []time.Time{
		time.Date(2026, 8, 1, 12, 0, 3, 500000000, time.UTC),
		time.Date(2026, 8, 1, 12, 0, 3, 0, time.UTC),
		time.Date(2026, 8, 1, 12, 0, 3, 150000000, time.UTC),
		time.Date(2026, 8, 1, 11, 59, 59, 999999999, time.UTC),
	}

	encoded := make([]string, len(times))
	for i, tm := range times {
		encoded[i] = EncodeTime(tm)
	}

	sort.Strings(encoded)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	for i := range times {
		assert.Equal(t, EncodeTime(times[i]), encoded[i])
	}
}

func TestDecodeTime_Invalid(t *testing.T) {
	_, err := DecodeTime("2026-08-01")
	assert.Error(t, err)
}

func TestEncodeDecodeTimePtr(t *testing.T) {
	assert.Nil(t, EncodeTimePtr(nil))

	in := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	enc := EncodeTimePtr(&in)
	s, ok := enc.(string)
	require.True(t, ok)

	got, err := DecodeTimePtr(&s)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, in.Equal(*got))

	got, err = DecodeTimePtr(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEncodeDecodeTags(t *testing.T) {
	s, err := EncodeTags([]string{" Work ", "EMAIL", "work"})
	require.NoError(t, err)
	assert.Equal(t, `["work","email"]`, s)

	tags, err := DecodeTags(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "email"}, tags)

	tags, err = DecodeTags("")
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, err = DecodeTags("{broken")
	assert.Error(t, err)
}
