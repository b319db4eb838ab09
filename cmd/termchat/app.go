package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sweetpotato0/termchat/agent"
	"github.com/sweetpotato0/termchat/chat"
	"github.com/sweetpotato0/termchat/config"
	"github.com/sweetpotato0/termchat/contextkey"
	"github.com/sweetpotato0/termchat/contrib/provider"
	"github.com/sweetpotato0/termchat/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/termchat/history"
	"github.com/sweetpotato0/termchat/history/store"
	"github.com/sweetpotato0/termchat/inlinechat"
	"github.com/sweetpotato0/termchat/mcp"
	"github.com/sweetpotato0/termchat/middleware"
	"github.com/sweetpotato0/termchat/middleware/errorhandler"
	"github.com/sweetpotato0/termchat/middleware/limiter"
	mwlogger "github.com/sweetpotato0/termchat/middleware/logger"
	"github.com/sweetpotato0/termchat/middleware/validator"
	"github.com/sweetpotato0/termchat/pkg/logging"
	"github.com/sweetpotato0/termchat/pkg/telemetry"
	"github.com/sweetpotato0/termchat/terminal"
)

// app holds everything a subcommand needs. Fields are populated by newApp in
// dependency order and released in reverse by close.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	service    *chat.Service
	store      history.Store
	contexts   *contextkey.Service
	tracker    *inlinechat.FocusTracker
	controller *inlinechat.Controller
	console    *terminal.Console
	bridge     *mcp.Bridge

	closers []func() error
}

type appOptions struct {
	configPath string
	agentID    string
	out        io.Writer

	// withAgents registers the LLM agent and MCP tool agents.
	withAgents bool

	// withController builds the inline chat controller and its console.
	withController bool
}

func newApp(ctx context.Context, opts appOptions) (a *app, err error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.agentID != "" {
		cfg.InlineChat.AgentID = opts.agentID
	}

	logger := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	logging.SetLogger(logger)

	a = &app{
		cfg:      cfg,
		logger:   logger,
		contexts: contextkey.NewService(),
		tracker:  inlinechat.NewFocusTracker(),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Disable:        !cfg.Telemetry.Enabled,
		Logger:         logging.WithComponent("telemetry"),
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })

	middlewares, err := buildMiddlewares(cfg)
	if err != nil {
		return nil, err
	}
	a.service = chat.NewService(
		chat.WithMiddleware(middlewares...),
		chat.WithTimeout(cfg.Agent.Timeout),
		chat.WithLogger(logging.WithComponent("chat_service")),
	)

	if opts.withAgents {
		if err := a.registerTerminalAgent(ctx); err != nil {
			return nil, err
		}
		if cfg.MCP.Enabled() {
			if err := a.attachMCP(ctx); err != nil {
				return nil, err
			}
		}
	}

	a.store, err = store.FromConfig(ctx, cfg.History)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if a.store != nil {
		a.closers = append(a.closers, a.store.Close)
	}

	if opts.withController {
		if err := a.startController(opts.out); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func buildMiddlewares(cfg *config.Config) ([]middleware.Middleware, error) {
	checks := []validator.ValidatorFunc{validator.NotBlank}
	if cfg.Limits.MaxInputTokens > 0 {
		counter, err := tiktoken.New(cfg.Limits.Encoding)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer %q: %w", cfg.Limits.Encoding, err)
		}
		checks = append(checks, validator.MaxTokens(counter, cfg.Limits.MaxInputTokens))
	}

	mws := []middleware.Middleware{
		errorhandler.NewErrorHandler(nil),
		mwlogger.NewRequestLogger(
			mwlogger.WithLogger(logging.WithComponent("requests")),
			mwlogger.WithInputs(cfg.Agent.LogInputs),
		),
		validator.NewInputValidator(validator.All(checks...)),
	}
	if cfg.Limits.RequestsPerSecond > 0 {
		mws = append(mws, limiter.NewRateLimiter(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst, limiter.WithWait(true)))
	}
	return mws, nil
}

// registerTerminalAgent registers the LLM-backed agent under the configured
// inline chat agent id. With provider "none" nothing is registered and only
// MCP agents can answer.
func (a *app) registerTerminalAgent(ctx context.Context) error {
	llm, release, err := provider.New(ctx, a.cfg.Provider)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, release)
	if llm == nil {
		a.logger.Info("no llm provider configured")
		return nil
	}

	ag := agent.New(
		agent.WithID(a.cfg.InlineChat.AgentID),
		agent.WithName(a.cfg.Agent.Name),
		agent.WithDescription(a.cfg.Agent.Description),
		agent.WithProvider(llm),
		agent.WithSystemPrompt(a.cfg.Agent.SystemPrompt),
		agent.WithEnvironment(agent.DetectEnvironment(a.cfg.Agent.Shell)),
		agent.WithLogger(logging.WithComponent("agent")),
	)
	unregister, err := a.service.Register(ag.Descriptor(), ag)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { unregister(); return nil })
	return nil
}

func (a *app) attachMCP(ctx context.Context) error {
	client, err := mcp.Connect(ctx, a.cfg.MCP, mcp.WithLogger(logging.WithComponent("mcp")))
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Close)

	a.bridge = mcp.NewBridge(client, a.service, nil)
	ids, err := a.bridge.Sync(ctx)
	if err != nil {
		a.logger.Warn("some mcp tools could not be registered", "error", err)
	}
	a.logger.Debug("mcp agents registered", "agents", ids)

	watchCtx, stop := context.WithCancel(context.Background())
	go a.bridge.Watch(watchCtx)
	a.closers = append(a.closers, func() error { stop(); a.bridge.Close(); return nil })
	return nil
}

func (a *app) startController(out io.Writer) error {
	settings, err := a.cfg.Settings()
	if err != nil {
		return err
	}

	opts := []terminal.Option{terminal.WithExecutor(terminal.NewShellExecutor(a.cfg.Agent.Shell))}
	a.controller = inlinechat.NewController(a.service, settings, terminal.Factory(out, opts...),
		inlinechat.WithAgentID(a.cfg.InlineChat.AgentID),
		inlinechat.WithContextKeys(a.contexts),
		inlinechat.WithFocusTracker(a.tracker),
		inlinechat.WithHistory(a.store),
		inlinechat.WithLogger(logging.WithComponent("inlinechat")),
	)
	a.closers = append(a.closers, func() error { a.controller.Dispose(); return nil })

	if !a.controller.Enable() {
		return errors.New("inline chat is disabled (inline_chat.enabled=false)")
	}
	if err := a.controller.Ready(terminal.NewHost(os.Stdout)); err != nil {
		return err
	}
	console, ok := a.controller.Widget().(*terminal.Console)
	if !ok {
		return fmt.Errorf("unexpected widget type %T", a.controller.Widget())
	}
	a.console = console
	a.controller.Focus()
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}
