package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/termchat/history"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit    int
		clearAll bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent requests and their answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{configPath: opts.configPath})
			if err != nil {
				return err
			}
			defer a.close()

			if a.store == nil {
				return errors.New("history is disabled (history.backend=none)")
			}
			if clearAll {
				return a.store.Clear(ctx)
			}

			entries, err := a.store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete all recorded entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

func printHistory(w io.Writer, entries []*history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no history yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tINPUT\tRESPONSE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Kind, oneLine(e.Input, 40), oneLine(e.Response, 60))
	}
	_ = tw.Flush()
}

func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s
}
