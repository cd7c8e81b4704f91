package main

import (
	"fmt"
	"time"

	"bunkerprices-service/internal/application"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tokenRefresh bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show the upstream token status",
	Long: `Reports whether a token is cached and when it expires. The token value
itself is never printed. With --refresh a token is obtained first, reusing a
shared one from the token store when it is still valid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := service(cmd.Context())
		if err != nil {
			return err
		}

		var st application.TokenStatus
		if tokenRefresh {
			st, err = s.EnsureToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
		} else {
			st = s.TokenStatus()
		}

		if asJSON {
			out := map[string]any{"cached": st.Cached, "valid": st.Valid, "expiresAt": nil}
			if st.Cached {
				out["expiresAt"] = st.ExpiresAt
			}
			return printJSON(out)
		}

		switch {
		case !st.Cached:
			fmt.Println(color.YellowString("no token cached in this process (use --refresh)"))
		case st.Valid:
			fmt.Printf("%s token valid, expires %s (in %s)\n", greenCheck,
				formatTime(&st.ExpiresAt), time.Until(st.ExpiresAt).Round(time.Second))
		default:
			fmt.Printf("%s token stale, expired or inside the safety margin at %s\n", redCross,
				formatTime(&st.ExpiresAt))
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenRefresh, "refresh", false, "Obtain a token before reporting")
	rootCmd.AddCommand(tokenCmd)
}
