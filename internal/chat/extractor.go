package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/memorycare/memorycare-backend/internal/llm"
	"github.com/memorycare/memorycare-backend/internal/model"
)

const storeForPrefix = "STORE_FOR:"

// Extractor turns a conversation turn into routed first-person facts via
// one completion call.
type Extractor struct {
	llm llm.Chat
	log zerolog.Logger
}

func NewExtractor(c llm.Chat, log zerolog.Logger) *Extractor {
	return &Extractor{llm: c, log: log.With().Str("component", "extractor").Logger()}
}

// ExtractAndRoute asks the model for storable facts from this turn and
// parses its line-oriented reply. The routed owner is whatever the model
// emitted, passed through unchanged.
func (e *Extractor) ExtractAndRoute(ctx context.Context, ownerID, userMessage, assistantReply string) []model.RoutedMemory {
	raw := e.llm.Chat(ctx, routingSystemPrompt, []llm.Message{
		{Role: "user", Content: routingPrompt(ownerID, userMessage, assistantReply)},
	})
	return e.parseExtraction(raw)
}

// parseExtraction applies the line protocol: a NO_STORAGE token anywhere
// empties the whole result; otherwise each STORE_FOR line yields one fact.
// Malformed lines are skipped, never fatal.
func (e *Extractor) parseExtraction(raw string) []model.RoutedMemory {
	if strings.Contains(strings.ToUpper(raw), "NO_STORAGE") {
		return nil
	}

	var out []model.RoutedMemory
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, storeForPrefix) {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			e.log.Warn().Str("line", line).Msg("skipping malformed extraction line")
			continue
		}
		target := strings.TrimSpace(strings.TrimPrefix(parts[0], storeForPrefix))
		category := strings.Trim(strings.TrimSpace(parts[1]), "[]")
		fact := strings.TrimSpace(parts[2])
		if fact == "" || len(strings.Fields(fact)) < 3 {
			continue
		}
		out = append(out, model.RoutedMemory{
			TargetOwnerID: target,
			Text:          fact,
			Category:      category,
		})
	}
	return out
}
