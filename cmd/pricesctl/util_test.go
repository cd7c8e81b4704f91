package main

import (
	"bytes"
	"testing"
	"time"

	"bunkerprices-service/internal/domain"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestFormatChange(t *testing.T) {
	color.NoColor = true
	require.Equal(t, "", formatChange(nil))
	require.Equal(t, "+10.00%", formatChange(domain.Price(10)))
	require.Equal(t, "-2.50%", formatChange(domain.Price(-2.5)))
	require.Equal(t, "0.00%", formatChange(domain.Price(0)))
}

func TestFormatValue(t *testing.T) {
	color.NoColor = true
	require.Equal(t, "n/a", formatValue(nil))
	require.Equal(t, "612.50", formatValue(domain.Price(612.5)))
}

func TestParseTimeFlag(t *testing.T) {
	got, err := parseTimeFlag("")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = parseTimeFlag("2025-01-01T12:00:00Z")
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)))

	_, err = parseTimeFlag("yesterday")
	require.Error(t, err)
}

func TestCheckSharedStorage(t *testing.T) {
	color.NoColor = true
	var warn bytes.Buffer

	require.ErrorIs(t, checkSharedStorage("memory", false, &warn), ErrEphemeralStorage)
	require.ErrorIs(t, checkSharedStorage("", false, &warn), ErrEphemeralStorage)
	require.Empty(t, warn.String())

	require.NoError(t, checkSharedStorage("memory", true, &warn))
	require.Contains(t, warn.String(), "STORAGE=memory")

	warn.Reset()
	require.NoError(t, checkSharedStorage("pg", false, &warn))
	require.NoError(t, checkSharedStorage("redis", false, &warn))
	require.Empty(t, warn.String())
}
