// Command termchat attaches an inline chat box to the terminal: describe what
// you want to do and get back a shell command or an answer.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configPath string
	agentID    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "termchat",
		Short: "Inline chat for your terminal",
		Long: `termchat turns natural-language requests into shell commands.

Answers that contain a fenced code block are offered as a command you can run
or edit; anything else is shown as a message.

Run without arguments to start the interactive chat.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.agentID, "agent", "", "agent id to talk to (overrides inline_chat.agent_id)")

	root.AddCommand(
		newChatCmd(opts),
		newAskCmd(opts),
		newHistoryCmd(opts),
		newAgentsCmd(opts),
	)
	return root
}

func defaultConfigPath() string {
	if path := os.Getenv("TERMCHAT_CONFIG"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir + "/termchat/config.yaml"
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "termchat:", err)
		os.Exit(1)
	}
}
