package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gamma-omg/profile-mcp/chat"
	"github.com/gamma-omg/profile-mcp/docstore"
	"github.com/gamma-omg/profile-mcp/llm"
	"github.com/gamma-omg/profile-mcp/pipeline"
	"github.com/gamma-omg/profile-mcp/selector"
	"github.com/gofiber/fiber/v2"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

const retryHint = "（模型暂时无法回答，可以重新发送这条消息。）"

type app struct {
	cfg    *Config
	log    *slog.Logger
	closer io.Closer
	store  *docstore.Store
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := readConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	store, err := docstore.NewRegistry(logger, cfg.DocRoot, cfg.SeedPlaceholder).Load()
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	ids := make([]string, 0, store.Len())
	for _, d := range store.List() {
		ids = append(ids, d.ID)
	}
	logger.Info("documents loaded", "root", cfg.DocRoot, "count", store.Len(), "ids", ids)
	logger.Info("data summary", "summary", store.Summary())

	return &app{
		cfg:    cfg,
		log:    logger,
		closer: closer,
		store:  store,
	}, nil
}

func (a *app) Close() error {
	return a.closer.Close()
}

func newProvider(ctx context.Context, cfg *Config) (llm.Provider, error) {
	opts := []llm.Option{llm.WithTemperature(cfg.LLM.Temperature)}
	if cfg.LLM.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.LLM.MaxTokens))
	}

	switch cfg.LLM.Provider {
	case "gemini":
		if cfg.Gemini == nil {
			return nil, errors.New("gemini provider selected but not configured")
		}
		return llm.NewGeminiProvider(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model, opts...)
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai provider selected but not configured")
		}
		return llm.NewOpenAIProvider(cfg.OpenAI.BaseURL, cfg.OpenAI.ApiKey, cfg.OpenAI.Model, opts...)
	}

	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
}

func (a *app) chatService(ctx context.Context) (*chat.Service, error) {
	gen, err := newProvider(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm provider: %w", err)
	}

	pipe := pipeline.New(a.log, a.store, selector.New(a.cfg.vocabulary()), gen, pipeline.Config{
		ProfileID:    a.cfg.ProfileID,
		SystemPrompt: a.cfg.SystemPrompt,
		Greeting:     a.cfg.Greeting,
	})

	return chat.NewService(a.log, pipe, time.Duration(a.cfg.SessionTTLMins)*time.Minute), nil
}

func (a *app) serveMCP(ctx context.Context) error {
	srv := NewProfileServer(a.store, a.log)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", a.cfg.ServerAddr)))

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(sctx); err != nil {
			a.log.Error("failed to stop MCP server", "error", err)
		}
	}()

	a.log.Info("MCP server listening", "addr", a.cfg.ServerAddr)
	if err := sse.Start(a.cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("MCP server: %w", err)
	}

	return nil
}

func (a *app) serveStdio(ctx context.Context) error {
	srv := NewProfileServer(a.store, a.log)
	stdio := server.NewStdioServer(srv)
	stdio.SetErrorLogger(log.New(io.Discard, "", 0))

	a.log.Info("MCP server on stdio")
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}

	return nil
}

func (a *app) serveAPI(ctx context.Context, api *fiber.App) error {
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := api.ShutdownWithContext(sctx); err != nil {
			a.log.Error("failed to stop chat API", "error", err)
		}
	}()

	a.log.Info("chat API listening", "addr", a.cfg.APIAddr)
	if err := api.Listen(a.cfg.APIAddr); err != nil {
		return fmt.Errorf("chat API: %w", err)
	}

	return nil
}

func (a *app) newAPI(ctx context.Context) (*fiber.App, error) {
	svc, err := a.chatService(ctx)
	if err != nil {
		return nil, err
	}

	return NewAPI(svc, a.store.Len(), a.log), nil
}

// runChat talks to svc over a terminal until the input ends or the user says goodbye.
func runChat(ctx context.Context, svc chatService, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "个人资料助手已启动，输入“退出”结束对话。")

	var sessionID string
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "你: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if isExit(text) {
			fmt.Fprintln(out, "再见！")
			return nil
		}

		res, err := svc.Chat(ctx, sessionID, text)
		sessionID = res.SessionID
		fmt.Fprintf(out, "助手: %s\n", res.Reply)
		if errors.Is(err, pipeline.ErrCapability) {
			fmt.Fprintln(out, retryHint)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func isExit(text string) bool {
	switch strings.ToLower(text) {
	case "退出", "quit", "exit":
		return true
	}

	return false
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "profilebot",
		Short:         "Question answering and search over personal profile documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "cfg/config.yaml", "Configuration file")

	withApp := func(run func(cmd *cobra.Command, a *app) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := run(cmd, a); err != nil {
				a.log.Error("command failed", "command", cmd.Name(), "error", err)
				return err
			}

			return nil
		}
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server and the chat API together",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			api, err := a.newAPI(cmd.Context())
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return a.serveMCP(ctx) })
			g.Go(func() error { return a.serveAPI(ctx, api) })

			return g.Wait()
		}),
	}

	var stdio bool
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server only",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			if stdio {
				return a.serveStdio(cmd.Context())
			}
			return a.serveMCP(cmd.Context())
		}),
	}
	mcpCmd.Flags().BoolVar(&stdio, "stdio", false, "Serve MCP over stdin/stdout instead of SSE")

	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Run the chat API only",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			api, err := a.newAPI(cmd.Context())
			if err != nil {
				return err
			}
			return a.serveAPI(cmd.Context(), api)
		}),
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			svc, err := a.chatService(cmd.Context())
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), svc, cmd.InOrStdin(), cmd.OutOrStdout())
		}),
	}

	root.AddCommand(serveCmd, mcpCmd, apiCmd, chatCmd)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
