package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanobot-ai/memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete entries older than a given age",
		Run:   runPrune,
	}
	cmd.Flags().Int("older-than-days", 0, "Delete rows created more than N days ago (required)")
	cmd.Flags().Bool("dry-run", false, "Count matching rows without deleting")
	cmd.MarkFlagRequired("older-than-days")
	RootCmd.AddCommand(cmd)
}

func runPrune(cmd *cobra.Command, args []string) {
	days, _ := cmd.Flags().GetInt("older-than-days")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if days <= 0 {
		fmt.Println("error: --older-than-days must be positive")
		exitUsage()
	}

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	n, err := e.Prune(cmd.Context(), store.PruneParams{OlderThanDays: days, DryRun: dryRun})
	if err != nil {
		exitErr("prune", err)
	}

	verb := "pruned"
	if dryRun {
		verb = "would prune"
	}
	fmt.Printf("%s %d rows\n", verb, n)
}
