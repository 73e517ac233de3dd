package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"artisan-market/internal/config"

	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

// cfg загружается до запуска любой подкоманды
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "capturectl",
	Short:         "Проверка фото товаров и съёмка с камеры из каталога кадров",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
	},
}

// Execute запускает CLI; Ctrl+C отменяет текущую операцию
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
