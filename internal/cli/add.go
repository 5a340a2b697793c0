package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanobot-ai/memory/internal/engine"
	"github.com/nanobot-ai/memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Manually insert a memory entry",
		Run:   runAdd,
	}
	cmd.Flags().String("text", "", "Entry text (required)")
	cmd.Flags().String("kind", "", "preference, fact, decision, or episodic (required)")
	cmd.Flags().String("scope", "chat", "chat, user, or global")
	cmd.Flags().String("channel", "cli", "Originating channel")
	cmd.Flags().String("chat-id", "", "Chat identifier")
	cmd.Flags().String("sender-id", "", "Sender identifier")
	cmd.MarkFlagRequired("text")
	cmd.MarkFlagRequired("kind")
	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	text, _ := cmd.Flags().GetString("text")
	kind, _ := cmd.Flags().GetString("kind")
	scopeFlag, _ := cmd.Flags().GetString("scope")
	channel, _ := cmd.Flags().GetString("channel")
	chatID, _ := cmd.Flags().GetString("chat-id")
	senderID, _ := cmd.Flags().GetString("sender-id")

	if !model.ValidKinds[model.Kind(kind)] {
		fmt.Printf("error: invalid kind %q\n", kind)
		exitUsage()
	}

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	entry, outcome, err := e.Add(cmd.Context(), engine.AddParams{
		Text: text, Kind: model.Kind(kind), Scope: scopeFlag,
		Channel: channel, ChatID: chatID, SenderID: senderID,
	})
	if err != nil {
		exitErr("add", err)
	}

	fmt.Printf("%s %s (id=%s)\n", outcome, entry.Kind, entry.ID)
}
