package main

import (
	"fmt"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type latestRow struct {
	Instrument domain.InstrumentID `json:"instrument"`
	Name       string              `json:"name,omitempty"`
	Value      *float64            `json:"value"`
	RecordedAt *time.Time          `json:"recordedAt"`
	Previous   *float64            `json:"previous"`
	ChangePct  *float64            `json:"changePct"`
}

var latestCmd = &cobra.Command{
	Use:   "latest [instrument]",
	Short: "Show the newest stored price per instrument",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := historyService(cmd.Context())
		if err != nil {
			return err
		}

		var prices []application.LatestPrice
		if len(args) == 1 {
			lp, err := s.Latest(cmd.Context(), domain.InstrumentID(args[0]))
			if err != nil {
				return fmt.Errorf("latest: %w", err)
			}
			prices = []application.LatestPrice{lp}
		} else {
			prices, err = s.LatestAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("latest: %w", err)
			}
		}

		if asJSON {
			rows := make([]latestRow, 0, len(prices))
			for _, lp := range prices {
				rows = append(rows, latestRow{
					Instrument: lp.Instrument.ID,
					Name:       lp.Instrument.Name,
					Value:      lp.Value,
					RecordedAt: lp.RecordedAt,
					Previous:   lp.Previous,
					ChangePct:  lp.ChangePct,
				})
			}
			return printJSON(rows)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Instrument", "Name", "Value", "Previous", "Change", "Recorded"})
		for _, lp := range prices {
			t.AppendRow(table.Row{
				color.New(color.Bold).Sprint(lp.Instrument.ID),
				lp.Instrument.Name,
				formatValue(lp.Value),
				formatValue(lp.Previous),
				formatChange(lp.ChangePct),
				formatTime(lp.RecordedAt),
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(latestCmd)
}
