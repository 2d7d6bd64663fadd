package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/chosung/apps/go-server/internal/game"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "./data/chosung.db", cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.Dict.Timeout)
	assert.Empty(t, cfg.OperatorSecret)
	assert.Equal(t, game.DefaultConfig(), cfg.GameConfig())
	assert.Equal(t, 2.0, cfg.Transport.SubmitRate)
	assert.Equal(t, 5, cfg.Transport.SubmitBurst)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("MAX_ROUNDS", "3")
	t.Setenv("BASE_TIME", "7s")
	t.Setenv("TIME_STEP", "500ms")
	t.Setenv("RESET_USED_WORDS_EACH_ROUND", "true")
	t.Setenv("STD_KO_DICT_KEY", "k")

	cfg, err := Parse()
	require.NoError(t, err)

	g := cfg.GameConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "k", cfg.Dict.Key)
	assert.Equal(t, 3, g.MaxRounds)
	assert.Equal(t, 7*time.Second, g.BaseTime)
	assert.Equal(t, 500*time.Millisecond, g.TimeStep)
	assert.True(t, g.ResetUsedWordsEachRound)
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name, key, value string
	}{
		{"zero rounds", "MAX_ROUNDS", "0"},
		{"zero min time", "MIN_TIME", "0s"},
		{"base below min", "BASE_TIME", "500ms"},
		{"negative step", "TIME_STEP", "-1s"},
		{"no seats", "MAX_PLAYERS", "0"},
		{"negative penalty", "TIMEOUT_PENALTY", "-5"},
		{"no burst", "SUBMIT_BURST", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Parse()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_BadValue(t *testing.T) {
	t.Setenv("MAX_ROUNDS", "many")
	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}
