package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexispurslane/stylable-lsp/config"
	"github.com/alexispurslane/stylable-lsp/server"
)

var (
	stdio      bool
	tcpAddr    string
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "stylable-lsp",
	Short: "Language server for Stylable stylesheets",
	Long: `stylable-lsp serves completions, definitions, references and diagnostics
for .st.css files over the Language Server Protocol.

Editors normally launch it over stdio. Pass --tcp to listen on an address
instead, which is handy when attaching a debugger.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVar(&stdio, "stdio", true, "Communicate over stdin and stdout (default)")
	rootCmd.Flags().StringVar(&tcpAddr, "tcp", "", "Listen on a TCP address instead, e.g. 127.0.0.1:9999")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file; defaults to stylable-lsp.{yaml,json,toml} in the workspace root")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR; overrides the config file")
}

func run(cmd *cobra.Command, args []string) error {
	if logLevel != "" {
		// the config is loaded at initialize, so the flag travels as an env override
		if err := os.Setenv(config.EnvPrefix+"_LOG_LEVEL", strings.ToUpper(logLevel)); err != nil {
			return err
		}
		cfg := config.DefaultConfig()
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
		slog.SetLogLoggerLevel(cfg.SlogLevel())
	}

	logger, err := transportLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	opts := []server.Option{server.WithLogger(logger)}
	if configPath != "" {
		opts = append(opts, server.WithConfigPath(configPath))
	}
	srv := server.New(opts...)

	if tcpAddr != "" {
		slog.Info("stylable-lsp server starting", "mode", "tcp", "address", tcpAddr)
		return srv.RunTCP(tcpAddr)
	}
	if !stdio {
		return fmt.Errorf("no transport: pass --stdio or --tcp")
	}
	slog.Info("stylable-lsp server starting", "mode", "stdio")
	return srv.RunStdio()
}

// transportLogger logs JSON-RPC traffic problems to stderr; stdout belongs to
// the protocol.
func transportLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC", "error", r, "stack", string(debug.Stack()))
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
