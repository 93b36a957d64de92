package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crypto_dash/internal/app"
	"crypto_dash/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := tui.NewNotifier()

	// Logs go to a file so they never draw over the screen
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx, app.Options{LogFile: true, OnUpdate: notifier.Notify}); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Bootstrapping failed: %v\n", err)
		os.Exit(1)
	}
	defer bootstrap.Close()

	model := tui.NewModel(ctx, bootstrap.Dashboard, bootstrap.Favorites, bootstrap.NewDetailView, notifier)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
