// ABOUTME: Entry point for the confidant terminal chat client
// ABOUTME: Wires config, store, provider, browser and send flow into a readline loop

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/confidant/internal/browser"
	"github.com/2389/confidant/internal/config"
	"github.com/2389/confidant/internal/provider"
	"github.com/2389/confidant/internal/sendflow"
	"github.com/2389/confidant/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                   __ _     _             _
  ___ ___  _ __  / _(_) __| | __ _ _ __ | |_
 / __/ _ \| '_ \| |_| |/ _' |/ _' | '_ \| __|
| (_| (_) | | | |  _| | (_| | (_| | | | | |_
 \___\___/|_| |_|_| |_|\__,_|\__,_|_| |_|\__|
`

// getConfigPath returns the path to the confidant config file.
// Priority: CONFIDANT_CONFIG env var > XDG_CONFIG_HOME/confidant/config.yaml > ~/.config/confidant/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("CONFIDANT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "confidant", "config.yaml")
}

// getDataPath returns the path to the confidant data directory.
// Priority: XDG_DATA_HOME/confidant > ~/.local/share/confidant
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "confidant")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: confidant <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  chat      Start an interactive chat session")
		fmt.Println("  threads   List conversation threads")
		fmt.Println("  reset     Delete all threads and messages")
		fmt.Println("  init      Create a sample config file")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(ctx)
	case "threads":
		err = runThreads(ctx)
	case "reset":
		err = runReset(ctx)
	case "init":
		err = runInit()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runChat(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Model:    %s\n", modelName(cfg))
	fmt.Println()

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	systemPrompt, err := cfg.SystemPrompt()
	if err != nil {
		return fmt.Errorf("resolving persona prompt: %w", err)
	}

	p := provider.NewOpenAIProvider(provider.Options{
		APIKey:       cfg.OpenAI.APIKey,
		Model:        cfg.OpenAI.Model,
		Temperature:  cfg.OpenAI.Temperature,
		MaxTokens:    cfg.OpenAI.MaxTokens,
		BaseURL:      cfg.OpenAI.BaseURL,
		SystemPrompt: systemPrompt,
	})

	b := browser.New(st, logger)
	controller := sendflow.New(st, p, sendflow.Config{
		HistoryLimit: cfg.Chat.HistoryLimit,
		ReplyTimeout: cfg.Chat.ReplyTimeout,
	}, logger)

	session := &chatSession{
		store:      st,
		browser:    b,
		controller: controller,
		persona:    personaName(cfg),
		threadPage: cfg.Chat.ThreadPage,
	}
	return session.run(ctx)
}

// chatSession drives the interactive readline loop.
type chatSession struct {
	store      store.Store
	browser    *browser.Browser
	controller *sendflow.Controller
	persona    string
	threadPage int

	// Latest listed threads, for numbered /switch and /delete
	listed []*store.Thread
}

func (s *chatSession) run(ctx context.Context) error {
	// Resume the most recent thread, or start fresh
	threads, err := s.browser.ListThreads(ctx, 1)
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}
	if len(threads) > 0 {
		if err := s.browser.SelectThread(ctx, threads[0].ID); err != nil {
			return fmt.Errorf("selecting thread: %w", err)
		}
		s.printHistory(ctx, threads[0].ID)
	} else {
		if _, err := s.browser.NewThread(ctx); err != nil {
			return fmt.Errorf("creating thread: %w", err)
		}
	}
	s.controller.SelectThread(s.browser.Selected())

	updates := s.controller.Subscribe(ctx)

	fmt.Println("Type a message, or /help for commands.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		color.New(color.FgGreen, color.Bold).Print("you> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(ctx, line); quit {
				break
			}
			continue
		}

		accepted := make(chan bool, 1)
		go func() { accepted <- s.controller.SendTurn(ctx, line) }()
		s.renderTurn(updates, accepted)
	}

	return scanner.Err()
}

// renderTurn consumes updates until the turn reaches a terminal state and
// prints the assistant's reply. A rejected turn emits nothing, so the
// accepted signal ends the wait in that case.
func (s *chatSession) renderTurn(updates <-chan *sendflow.Update, accepted <-chan bool) {
	for {
		select {
		case ok := <-accepted:
			if !ok {
				return
			}
			accepted = nil
		case update, open := <-updates:
			if !open {
				return
			}
			switch update.State {
			case sendflow.StateSending:
				color.New(color.FgHiBlack).Printf("%s is typing...\n", s.persona)
			case sendflow.StateCompleted:
				if n := len(update.Messages); n > 0 {
					last := update.Messages[n-1]
					if !last.IsUser {
						s.printAssistant(last.Text)
					}
				}
				return
			case sendflow.StateFailed:
				color.New(color.FgRed).Printf("message not sent: %v\n", update.Err)
				return
			}
		}
	}
}

func (s *chatSession) handleCommand(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/q":
		return true

	case "/help":
		fmt.Println("  /new          start a new thread")
		fmt.Println("  /threads      list threads")
		fmt.Println("  /switch <n>   switch to thread n from the last listing")
		fmt.Println("  /delete <n>   delete thread n from the last listing")
		fmt.Println("  /quit         exit")

	case "/new":
		thread, err := s.browser.NewThread(ctx)
		if err != nil {
			color.New(color.FgRed).Printf("creating thread: %v\n", err)
			return false
		}
		s.controller.SelectThread(thread.ID)
		fmt.Println("started a new thread")

	case "/threads":
		s.printThreads(ctx)

	case "/switch":
		thread := s.listedThread(fields)
		if thread == nil {
			return false
		}
		if err := s.browser.SelectThread(ctx, thread.ID); err != nil {
			color.New(color.FgRed).Printf("switching thread: %v\n", err)
			return false
		}
		s.controller.SelectThread(thread.ID)
		fmt.Printf("switched to %q\n", thread.Title)
		s.printHistory(ctx, thread.ID)

	case "/delete":
		thread := s.listedThread(fields)
		if thread == nil {
			return false
		}
		if err := s.browser.DeleteThread(ctx, thread.ID); err != nil {
			color.New(color.FgRed).Printf("deleting thread: %v\n", err)
			return false
		}
		s.controller.SelectThread(s.browser.Selected())
		fmt.Printf("deleted %q\n", thread.Title)

	default:
		fmt.Printf("unknown command %s (try /help)\n", fields[0])
	}
	return false
}

// listedThread resolves a 1-based index argument against the last listing.
func (s *chatSession) listedThread(fields []string) *store.Thread {
	if len(fields) < 2 {
		fmt.Println("usage: " + fields[0] + " <n>  (run /threads first)")
		return nil
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(s.listed) {
		fmt.Println("no such thread; run /threads to see the numbering")
		return nil
	}
	return s.listed[n-1]
}

func (s *chatSession) printThreads(ctx context.Context) {
	threads, err := s.browser.ListThreads(ctx, s.threadPage)
	if err != nil {
		color.New(color.FgRed).Printf("listing threads: %v\n", err)
		return
	}
	s.listed = threads

	if len(threads) == 0 {
		fmt.Println("no chats yet")
		return
	}
	for i, thread := range threads {
		marker := "  "
		if thread.ID == s.browser.Selected() {
			marker = color.GreenString("* ")
		}
		fmt.Printf("%s%2d. %-40s %s\n", marker, i+1, thread.Title, formatTimestamp(thread.LastMessageAt))
	}
}

func (s *chatSession) printHistory(ctx context.Context, threadID string) {
	messages, err := s.store.GetMessagesForThread(ctx, threadID, 0)
	if err != nil {
		color.New(color.FgRed).Printf("loading history: %v\n", err)
		return
	}
	for _, msg := range messages {
		if msg.IsUser {
			color.New(color.FgGreen, color.Bold).Print("you> ")
			fmt.Println(msg.Text)
		} else {
			s.printAssistant(msg.Text)
		}
	}
}

func (s *chatSession) printAssistant(text string) {
	color.New(color.FgCyan, color.Bold).Printf("%s> ", s.persona)
	fmt.Println(text)
}

func runThreads(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(setupLogger(cfg.Logging))

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	threads, err := st.GetThreads(ctx, cfg.Chat.ThreadPage)
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}

	if len(threads) == 0 {
		fmt.Println("no chats yet")
		return nil
	}
	for i, thread := range threads {
		fmt.Printf("%2d. %-40s %s\n", i+1, thread.Title, formatTimestamp(thread.LastMessageAt))
	}
	return nil
}

func runReset(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(setupLogger(cfg.Logging))

	fmt.Print("Delete ALL threads and messages? [y/N] ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
		fmt.Println("aborted")
		return nil
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if err := st.DeleteAllThreads(ctx); err != nil {
		return fmt.Errorf("deleting threads: %w", err)
	}
	fmt.Println("all threads deleted")
	return nil
}

func runInit() error {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	sample := fmt.Sprintf(`database:
  path: %s

openai:
  api_key: ${OPENAI_API_KEY}
  model: gpt-4
  temperature: 0.7
  max_tokens: 500

persona:
  name: ""
  prompt: ""
  # prompt_file: /path/to/persona.txt

chat:
  history_limit: 50
  thread_page: 20
  reply_timeout: 0s

logging:
  level: info
  format: text
`, filepath.Join(getDataPath(), "confidant.db"))

	if err := os.WriteFile(configPath, []byte(sample), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("wrote %s\n", configPath)
	return nil
}

func modelName(cfg *config.Config) string {
	if cfg.OpenAI.Model != "" {
		return cfg.OpenAI.Model
	}
	return provider.DefaultModel
}

func personaName(cfg *config.Config) string {
	if cfg.Persona.Name != "" {
		return cfg.Persona.Name
	}
	return "assistant"
}

// formatTimestamp renders a thread timestamp for listings.
func formatTimestamp(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
