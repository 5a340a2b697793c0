package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanobot-ai/memory/internal/scope"
	"github.com/nanobot-ai/memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search memories by keyword within a scope",
		Run:   runSearch,
	}
	cmd.Flags().String("query", "", "Query text (required)")
	cmd.Flags().String("channel", "cli", "Originating channel")
	cmd.Flags().String("chat-id", "", "Chat identifier")
	cmd.Flags().String("sender-id", "", "Sender identifier")
	cmd.Flags().String("scope", "all", "Scope to search: chat, user, or all")
	cmd.Flags().Int("k", 20, "Max results")
	cmd.MarkFlagRequired("query")
	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	query, _ := cmd.Flags().GetString("query")
	channel, _ := cmd.Flags().GetString("channel")
	chatID, _ := cmd.Flags().GetString("chat-id")
	senderID, _ := cmd.Flags().GetString("sender-id")
	scopeFlag, _ := cmd.Flags().GetString("scope")
	k, _ := cmd.Flags().GetInt("k")

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	keys := scope.Resolve(channel, chatID, senderID, "operator")

	var scopeKeys []string
	switch scopeFlag {
	case "chat":
		scopeKeys = []string{keys.Chat}
	case "user":
		scopeKeys = []string{keys.User}
	default:
		scopeKeys = []string{keys.Chat, keys.User, keys.Global}
	}

	results, err := e.Store().Search(cmd.Context(), store.SearchParams{
		ScopeKeys: scopeKeys,
		Query:     query,
		K:         k,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
