// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/predictroom/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" Yes ", "yes"},
		{"HOME", "home"},
		{"\tDraw\n", "draw"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestWinners(t *testing.T) {
	responses := []models.Response{
		{Username: "bob", Answer: " Yes "},
		{Username: "carol", Answer: "no"},
		{Username: "dave", Answer: "YES"},
	}

	assert.Equal(t, []string{"bob", "dave"}, Winners(responses, "yes"))
	assert.Equal(t, []string{"carol"}, Winners(responses, "No"))

	none := Winners(responses, "maybe")
	require.NotNil(t, none)
	assert.Empty(t, none)
}

func TestResolution(t *testing.T) {
	answer := "Home"
	p := models.Prediction{
		ID:         "p1",
		PointValue: 100,
		Resolved:   true,
		Responses: []models.Response{
			{Username: "bob", Answer: "Home"},
			{Username: "carol", Answer: "Home"},
			{Username: "dave", Answer: "Away"},
		},
		CorrectAnswer: &answer,
		Winners:       []string{"bob", "carol"},
	}

	credits := Resolution("room1", p)
	require.Len(t, credits, 3)

	byUser := map[string]models.Credit{}
	for _, c := range credits {
		byUser[c.Username] = c
		assert.Equal(t, "room1", c.RoomID)
		assert.Equal(t, ResolveEvent("p1"), c.Once)
	}

	assert.Equal(t, int64(100), byUser["bob"].Points)
	assert.Equal(t, int64(1), byUser["bob"].Correct)
	assert.Equal(t, int64(1), byUser["bob"].Total)
	assert.Equal(t, int64(100), byUser["carol"].Points)
	assert.Equal(t, int64(0), byUser["dave"].Points)
	assert.Equal(t, int64(0), byUser["dave"].Correct)
	assert.Equal(t, int64(1), byUser["dave"].Total)
}

func TestResolution_Unresolved(t *testing.T) {
	p := models.Prediction{ID: "p1", Responses: []models.Response{{Username: "bob", Answer: "x"}}}
	assert.Nil(t, Resolution("room1", p))
}

func TestFixedAwards(t *testing.T) {
	assert.Equal(t, int64(20), RoomCreated("r", "alice").Points)
	assert.Equal(t, int64(15), PredictionAdded("r", "alice", "p").Points)
	assert.Equal(t, int64(10), Joined("r", "bob").Points)
	assert.Equal(t, int64(5), ResponseSubmitted("r", "bob", "p").Points)

	assert.Equal(t, EventJoin, Joined("r", "bob").Once)
	assert.Equal(t, "respond:p", ResponseSubmitted("r", "bob", "p").Once)
}
