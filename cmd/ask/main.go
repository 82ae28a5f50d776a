package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/kirillkom/insight-assistant/internal/bootstrap"
	"github.com/kirillkom/insight-assistant/internal/config"
	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/observability/logging"
)

const serviceName = "insight-ask"

type historyEntry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Citations []string  `json:"citations"`
	Degraded  bool      `json:"degraded"`
	AskedAt   time.Time `json:"asked_at"`
}

func main() {
	app := &cli.App{
		Name:      "ask",
		Usage:     "answer questions against the retail database and the insight corpus",
		ArgsUsage: "[question]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "save-history",
				Usage: "write the session transcript to `FILE` as JSON on exit",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(logging.NewTextLogger(serviceName, "warn", os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	var history []historyEntry
	defer func() {
		if path := c.String("save-history"); path != "" {
			if err := saveHistory(path, history); err != nil {
				fmt.Fprintln(os.Stderr, "error: save history:", err)
			}
		}
	}()

	// One-shot mode: the question is passed as arguments.
	if c.NArg() > 0 {
		question := strings.Join(c.Args().Slice(), " ")
		entry, err := askOnce(ctx, app, question)
		if err != nil {
			return err
		}
		history = append(history, *entry)
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for {
		fmt.Print("You> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		entry, err := askOnce(ctx, app, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		history = append(history, *entry)
	}
}

func askOnce(ctx context.Context, app *bootstrap.App, question string) (*historyEntry, error) {
	answer, err := app.AskUC.Ask(ctx, question)
	if err != nil {
		return nil, err
	}

	fmt.Println("Final Answer>", answer.Text)
	printProvenance(answer)

	return &historyEntry{
		Question:  question,
		Answer:    answer.Text,
		Citations: answer.Citations,
		Degraded:  answer.Degraded,
		AskedAt:   time.Now().UTC(),
	}, nil
}

func printProvenance(answer *domain.Answer) {
	if len(answer.Citations) > 0 {
		fmt.Println("Cited:", strings.Join(answer.Citations, ", "))
	}
	for _, note := range answer.Notes {
		fmt.Printf("Note: %s retrieval degraded (%s)\n", note.Backend, note.Reason)
	}
}

func saveHistory(path string, history []historyEntry) error {
	if history == nil {
		history = []historyEntry{}
	}
	raw, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
