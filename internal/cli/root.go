// Package cli implements the memoryd operator commands (spec.md §6).
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nanobot-ai/memory/internal/config"
	"github.com/nanobot-ai/memory/internal/engine"
)

var (
	dbPathFlag     string
	configPathFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memoryd",
	Short: "Long-term memory core for a chat-assistant runtime",
	Long:  "memoryd manages the local-first, scoped, ranked long-term memory store: capture, recall, retention, and backfill.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Override memory.dbPath")
	RootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "Path to config.json (default: ~/.nanobot/config.json if present)")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".nanobot", "config.json")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func loadConfig() (*config.Config, error) {
	path := configPathFlag
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dbPathFlag != "" {
		cfg.Memory.DBPath = dbPathFlag
	}
	return cfg, nil
}

func openEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	workspaceRoot := filepath.Dir(filepath.Dir(cfg.Memory.DBPath))
	return engine.New(cfg, filepath.Join(workspaceRoot, "workspace"), nil)
}

// exitErr writes a runtime error to stderr and exits with code 1, per
// §6's exit-code contract (0 success, 2 usage error, 1 runtime error).
func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// exitUsage exits with code 2, for malformed flag values cobra's own
// parsing doesn't catch.
func exitUsage() {
	os.Exit(2)
}
