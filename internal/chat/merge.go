package chat

import (
	"strings"

	"github.com/google/uuid"

	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

const (
	optimisticPrefix        = "temp-"
	optimisticUserPrefix    = optimisticPrefix + "user-"
	optimisticErrorPrefix   = optimisticPrefix + "error-"
	optimisticSessionPrefix = optimisticPrefix + "session-"
)

// IsOptimistic reports whether id was minted locally and has no server counterpart.
func IsOptimistic(id string) bool {
	return strings.HasPrefix(id, optimisticPrefix)
}

func newOptimisticID(prefix string) string {
	return prefix + uuid.NewString()
}

// MergeMessages returns the confirmed messages followed by the optimistic ones. Entries without an id are skipped.
func MergeMessages(confirmed, optimistic []types.Message) []types.Message {
	merged := make([]types.Message, 0, len(confirmed)+len(optimistic))
	for _, msgs := range [][]types.Message{confirmed, optimistic} {
		for _, msg := range msgs {
			if msg.ID == "" {
				continue
			}
			merged = append(merged, msg)
		}
	}
	return merged
}

func removeMessages(msgs []types.Message, ids ...string) []types.Message {
	kept := msgs[:0:0]
	for _, msg := range msgs {
		drop := false
		for _, id := range ids {
			if id != "" && msg.ID == id {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, msg)
		}
	}
	return kept
}
