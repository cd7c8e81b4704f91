package main

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	return t
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v *float64) string {
	if v == nil {
		return color.HiBlackString("n/a")
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatChange(pct *float64) string {
	if pct == nil {
		return ""
	}
	s := strconv.FormatFloat(*pct, 'f', 2, 64) + "%"
	switch {
	case *pct > 0:
		return color.GreenString("+" + s)
	case *pct < 0:
		return color.RedString(s)
	default:
		return s
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimeFlag(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
