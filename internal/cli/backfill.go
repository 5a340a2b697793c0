package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "One-time import from legacy MEMORY.md and semantic mirror files",
		Run:   runBackfill,
	}
	RootCmd.AddCommand(cmd)
}

func runBackfill(cmd *cobra.Command, args []string) {
	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	nanobotRoot := filepath.Dir(filepath.Dir(cfg.Memory.DBPath))
	workspaceRoot := filepath.Join(nanobotRoot, "workspace")

	res, err := e.Backfill(cmd.Context(), workspaceRoot)
	if err != nil {
		exitErr("backfill", err)
	}

	if res.AlreadyComplete {
		fmt.Println("backfill already complete")
		return
	}
	fmt.Printf("inserted %d, skipped %d (already present)\n", res.Inserted, res.Skipped)
}
