package main

import (
	"fmt"
	"os"

	"github.com/AlexZinkM/credlink/internal/config"
	"github.com/AlexZinkM/credlink/internal/logger"

	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "scan":
		return runScan(args[1:])
	case "serve":
		return runServe(args[1:])
	case "linkcode":
		return runLinkCode(args[1:])
	case "tag":
		return runTag(args[1:])
	case "vault":
		return runVault(args[1:])
	case "fingerprint":
		return runFingerprint(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", args[0])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: credlink <subcommand> [flags]

Subcommands:
  scan          Scan a node's link code, read a credentials tag and submit it
  serve         Run the node-side credentials endpoint
  linkcode      Print the link code and write the QR code for an endpoint
  tag encode    Build an NDEF message holding a credentials object
  vault show    Open a sealed credentials vault
  fingerprint   Print the link code of a string
  validate      Check an endpoint or credentials payload

Configuration is read from the environment (PORT, VAULT_PATH, LOG_LEVEL, ...).
Run 'credlink <subcommand> --help' for subcommand flags.
`)
}

// setup loads configuration and builds the process logger
func setup() (*config.Config, *zap.Logger, error) {
	if err := config.Init(); err != nil {
		return nil, nil, err
	}
	cfg := config.Get()

	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
