package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/termchat/inlinechat"
)

const chatHelp = `Type a request and press Enter.
  /run          run the last suggested command
  /insert       put the last command into the input; an empty line submits it
  /history [n]  show recent requests
  /agents       list available agents
  /quit         leave
Ctrl-C cancels a running request; pressed while idle it exits.`

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive inline chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}
}

func runChat(cmd *cobra.Command, opts *rootOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	a, err := newApp(ctx, appOptions{
		configPath:     opts.configPath,
		agentID:        opts.agentID,
		out:            out,
		withAgents:     true,
		withController: true,
	})
	if err != nil {
		return err
	}
	defer a.close()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go a.routeInterrupts(ctx, interrupts, cancel)

	a.console.Reveal()
	s := &chatSession{app: a, out: out}
	lines := readLines(ctx, cmd.InOrStdin())
	for {
		fmt.Fprint(out, "› ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			if quit := s.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// routeInterrupts cancels the request of the focused controller, or ends the
// session when nothing is running.
func (a *app) routeInterrupts(ctx context.Context, interrupts <-chan os.Signal, quit context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-interrupts:
			if active := a.tracker.Active(); active != nil && active.Flags().RequestActive.Get() {
				active.Cancel()
				continue
			}
			quit()
			return
		}
	}
}

// readLines streams lines from r until it is exhausted or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

type chatSession struct {
	app *app
	out io.Writer
}

func (s *chatSession) handle(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	ctrl := s.app.controller

	if !strings.HasPrefix(line, "/") {
		if line == "" {
			if s.app.console.Value() == "" {
				return false
			}
		} else {
			s.app.console.SetValue(line)
		}
		s.report(ctrl.AcceptInput(ctx))
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(s.out, chatHelp)
	case "/run":
		ctrl.AcceptCommand(true)
	case "/insert":
		ctrl.AcceptCommand(false)
		if v := s.app.console.Value(); v != "" {
			fmt.Fprintf(s.out, "input: %s\n", v)
		}
	case "/history":
		n := 10
		if len(fields) > 1 {
			if parsed, err := strconv.Atoi(fields[1]); err == nil && parsed > 0 {
				n = parsed
			}
		}
		inputs, err := ctrl.RecentInputs(ctx, n)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			break
		}
		for i, in := range inputs {
			fmt.Fprintf(s.out, "%3d  %s\n", i+1, in)
		}
	case "/agents":
		printAgents(s.out, s.app.service.Agents())
	default:
		fmt.Fprintf(s.out, "unknown command %s, try /help\n", fields[0])
	}
	return false
}

func (s *chatSession) report(out inlinechat.Outcome) {
	switch out.Kind {
	case inlinechat.OutcomeCancelled:
		fmt.Fprintln(s.out, "cancelled")
	case inlinechat.OutcomeFailed:
		fmt.Fprintf(s.out, "error: %v\n", out.Err)
	}
}
