package main

import (
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/termchat/inlinechat"
)

var errCancelled = errors.New("request cancelled")

func newAskCmd(opts *rootOptions) *cobra.Command {
	var run bool

	cmd := &cobra.Command{
		Use:   "ask <request>",
		Short: "Ask once and print the suggested command or answer",
		Example: `  termchat ask find files larger than 100MB
  termchat ask --run show the five largest directories here`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx, appOptions{
				configPath:     opts.configPath,
				agentID:        opts.agentID,
				out:            cmd.OutOrStdout(),
				withAgents:     true,
				withController: true,
			})
			if err != nil {
				return err
			}
			defer a.close()

			a.console.SetValue(strings.Join(args, " "))
			out := a.controller.AcceptInput(ctx)
			switch out.Kind {
			case inlinechat.OutcomeFailed:
				return out.Err
			case inlinechat.OutcomeCancelled:
				return errCancelled
			case inlinechat.OutcomeCommand:
				if run {
					a.controller.AcceptCommand(true)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&run, "run", false, "run the suggested command")
	return cmd
}
