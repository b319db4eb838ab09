package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/termchat/chat"
)

func newAgentsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agents requests can be sent to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{configPath: opts.configPath, agentID: opts.agentID, withAgents: true})
			if err != nil {
				return err
			}
			defer a.close()

			printAgents(cmd.OutOrStdout(), a.service.Agents())
			return nil
		},
	}
}

func printAgents(w io.Writer, agents []chat.AgentDescriptor) {
	if len(agents) == 0 {
		fmt.Fprintln(w, "no agents registered")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, ag := range agents {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ag.ID, ag.Name, ag.Description)
	}
	_ = tw.Flush()
}
