package main

import (
	"fmt"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	instrument string
	from       string
	to         string
}

type historyRow struct {
	Instrument domain.InstrumentID `json:"instrument"`
	Value      *float64            `json:"value"`
	RecordedAt time.Time           `json:"recordedAt"`
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored snapshots in a time window",
	Long: `Without --from the window starts one retention period ago. Without
--instrument every configured instrument is listed in time order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseTimeFlag(historyFlags.from)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := parseTimeFlag(historyFlags.to)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		q := application.HistoryQuery{From: from, To: to}
		if historyFlags.instrument != "" {
			id := domain.InstrumentID(historyFlags.instrument)
			q.Instrument = &id
		}

		s, err := historyService(cmd.Context())
		if err != nil {
			return err
		}
		series, err := s.History(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}

		if asJSON {
			rows := make([]historyRow, 0, series.Len())
			for snap := range series.All() {
				rows = append(rows, historyRow{Instrument: snap.InstrumentID, Value: snap.Value, RecordedAt: snap.RecordedAt})
			}
			return printJSON(rows)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Recorded", "Instrument", "Value"})
		for snap := range series.All() {
			at := snap.RecordedAt
			t.AppendRow(table.Row{formatTime(&at), snap.InstrumentID, formatValue(snap.Value)})
		}
		t.AppendFooter(table.Row{"", "Total", series.Len()})
		t.Render()
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyFlags.instrument, "instrument", "i", "", "Instrument id")
	historyCmd.Flags().StringVar(&historyFlags.from, "from", "", "Window start (RFC 3339)")
	historyCmd.Flags().StringVar(&historyFlags.to, "to", "", "Window end (RFC 3339, default now)")
	rootCmd.AddCommand(historyCmd)
}
