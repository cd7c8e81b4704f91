package main

import (
	"fmt"

	"bunkerprices-service/internal/domain"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var pollIdemKey string

type pollRow struct {
	Instrument domain.InstrumentID `json:"instrument"`
	Value      *float64            `json:"value"`
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one poll cycle and store the snapshots",
	Long: `Fetches a token if needed, reads the live prices once and appends one
snapshot per configured instrument. Suitable as a cron job. Requires
STORAGE=redis or pg unless --ephemeral is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := historyService(cmd.Context())
		if err != nil {
			return err
		}
		var key *string
		if pollIdemKey != "" {
			key = &pollIdemKey
		}
		res, err := s.TriggerPoll(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}

		if asJSON {
			rows := make([]pollRow, 0, len(res.Snapshots))
			for _, snap := range res.Snapshots {
				rows = append(rows, pollRow{Instrument: snap.InstrumentID, Value: snap.Value})
			}
			return printJSON(map[string]any{"recordedAt": res.RecordedAt, "prices": rows})
		}

		t := newTable()
		t.AppendHeader(table.Row{"Instrument", "Value"})
		for _, snap := range res.Snapshots {
			t.AppendRow(table.Row{snap.InstrumentID, formatValue(snap.Value)})
		}
		t.Render()
		fmt.Printf("%s recorded %d snapshots at %s\n", greenCheck, len(res.Snapshots), formatTime(&res.RecordedAt))
		return nil
	},
}

func init() {
	pollCmd.Flags().StringVar(&pollIdemKey, "idempotency-key", "", "Reject the run if this key was already used")
	rootCmd.AddCommand(pollCmd)
}
