// Terminal dashboard for the shopfloor tracker. Runs a viewer client
// against the API server and redraws the live order board once per second.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/station42/shopfloor/internal/env"
	"github.com/station42/shopfloor/internal/viewer"
)

func main() {
	serverURL := flag.String("server", env.GetString("SERVER_URL", "http://localhost:8080"), "API server base URL")
	logPath := flag.String("log", env.GetString("DASHBOARD_LOG", ""), "optional debug log file")
	flag.Parse()

	// The terminal belongs to the TUI, so logs go to a file or nowhere.
	logWriter := io.Writer(io.Discard)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logWriter = f
	}
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := viewer.New(*serverURL, logger)
	go func() {
		_ = v.Run(ctx)
	}()

	p := tea.NewProgram(newBoard(v), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
		os.Exit(1)
	}
}
