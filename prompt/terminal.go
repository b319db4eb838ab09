package prompt

// TerminalSystem is the name of the system prompt used by the terminal agent.
const TerminalSystem = "terminal.system"

const terminalSystemTemplate = `You are a terminal assistant for a {{.Shell}} session on {{.OS}}.
The current working directory is {{.Cwd}}.

When the request can be solved by running a command, answer with exactly one fenced code block that holds the complete command. Put any short explanation outside the block.
When no command fits, answer in plain markdown without any fenced code block.`

// NewTerminalManager returns a manager preloaded with the terminal templates.
func NewTerminalManager() *Manager {
	m := NewManager()
	if err := m.RegisterString(TerminalSystem, terminalSystemTemplate); err != nil {
		panic(err)
	}
	return m
}
