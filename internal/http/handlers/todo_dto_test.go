package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDueAt(t *testing.T) {
	cases := map[string]time.Time{
		"2100-01-01T00:00:00+00:00": time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
		"2100-01-01T05:30:00+05:30": time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
		"2030-06-15T12:00:00Z":      time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC),
		"2030-06-15T12:00:00":       time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC),
		"2030-06-15":                time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseDueAt(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	for _, bad := range []string{"", "tomorrow", "15/06/2030", "2030-13-01"} {
		_, err := ParseDueAt(bad)
		assert.Error(t, err, bad)
	}
}

func TestUpdateRequestDistinguishesNullFromAbsent(t *testing.T) {
	var absent UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"completed": true}`), &absent))
	in := absent.input()
	assert.False(t, in.DueAtSet)
	assert.False(t, in.PrioritySet)
	assert.True(t, *in.Completed)

	var cleared UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"due_at": null, "priority": null}`), &cleared))
	in = cleared.input()
	assert.True(t, in.DueAtSet)
	assert.Nil(t, in.DueAt)
	assert.True(t, in.PrioritySet)
	assert.Nil(t, in.Priority)

	var set UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"due_at": "2031-01-02", "priority": "low"}`), &set))
	in = set.input()
	require.NotNil(t, in.DueAt)
	assert.Equal(t, 2031, in.DueAt.Year())
	assert.Equal(t, "low", *in.Priority)

	var bad UpdateTodoRequest
	assert.Error(t, json.Unmarshal([]byte(`{"due_at": 12}`), &bad))
}
