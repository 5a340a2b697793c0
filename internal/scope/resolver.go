// Package scope maps a turn's transport identifiers to the scope keys that
// bound capture and retrieval (spec.md §4.2).
package scope

import (
	"fmt"

	"github.com/nanobot-ai/memory/internal/model"
)

// Keys holds the three scope keys derivable from a turn's identifiers.
type Keys struct {
	Chat   string
	User   string
	Global string
}

// Resolve computes the chat/user/global scope keys for a turn. It is a
// pure function with no I/O, per §4.2.
func Resolve(channel, chatID, senderID, workspaceID string) Keys {
	userID := senderID
	if userID == "" {
		userID = chatID
	}
	return Keys{
		Chat:   fmt.Sprintf("channel:%s:chat:%s", channel, chatID),
		User:   fmt.Sprintf("channel:%s:user:%s", channel, userID),
		Global: fmt.Sprintf("workspace:%s:global", workspaceID),
	}
}

// DefaultForKind returns the scope key Capture must use for a given kind,
// per the kind→scope defaults in §4.2. Extractor output may never override
// this mapping; only explicit manual inserts may choose a different scope.
func DefaultForKind(kind model.Kind, keys Keys) string {
	switch kind {
	case model.KindPreference, model.KindFact:
		return keys.User
	case model.KindDecision, model.KindEpisodic:
		return keys.Chat
	default:
		return keys.Chat
	}
}
