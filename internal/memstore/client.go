// Package memstore is the gateway to the external memory service. It owns
// the wire envelope the service expects and normalizes its inconsistent
// response shapes into flat, owner-filtered record lists.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/memorycare/memorycare-backend/internal/model"
)

const (
	agentID     = "memorycare_app"
	episodeType = "memory_entry"

	// Profile memories live in a shared fixed group and are always looked
	// up with the same query string.
	profileGroupID = "memorycare_group"
	profileQuery   = "profile information"

	defaultProfileCategory = "personal"
	defaultProfileType     = "profile_info"

	requestTimeout = 20 * time.Second
	healthTimeout  = 10 * time.Second

	profileSearchLimit = 50
)

// Gateway talks to the memory service. It is stateless and safe for
// concurrent use; construct once and share.
type Gateway struct {
	client *resty.Client
	log    zerolog.Logger
}

// New builds a Gateway against the given base URL.
func New(baseURL string, log zerolog.Logger) *Gateway {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(requestTimeout)
	return &Gateway{client: c, log: log.With().Str("component", "memstore").Logger()}
}

type sessionEnvelope struct {
	GroupID   string   `json:"group_id"`
	AgentID   []string `json:"agent_id"`
	UserID    []string `json:"user_id"`
	SessionID string   `json:"session_id"`
}

func sessionFor(ownerID string) sessionEnvelope {
	return sessionEnvelope{
		GroupID:   ownerID,
		AgentID:   []string{agentID},
		UserID:    []string{ownerID},
		SessionID: ownerID,
	}
}

func profileSessionFor(ownerID string) sessionEnvelope {
	s := sessionFor(ownerID)
	s.GroupID = profileGroupID
	return s
}

type writeRequest struct {
	Session        sessionEnvelope `json:"session"`
	Producer       string          `json:"producer"`
	ProducedFor    string          `json:"produced_for"`
	EpisodeContent string          `json:"episode_content"`
	EpisodeType    string          `json:"episode_type"`
	Metadata       map[string]any  `json:"metadata"`
}

type searchRequest struct {
	Session sessionEnvelope `json:"session"`
	Query   string          `json:"query"`
	Filter  map[string]any  `json:"filter,omitempty"`
	Limit   int             `json:"limit"`
}

// Write stores one episodic memory for ownerID. Non-2xx and transport
// failures surface as errors; callers in the chat path log and continue.
func (g *Gateway) Write(ctx context.Context, ownerID, text string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	body := writeRequest{
		Session:        sessionFor(ownerID),
		Producer:       ownerID,
		ProducedFor:    ownerID,
		EpisodeContent: text,
		EpisodeType:    episodeType,
		Metadata:       map[string]any{"tags": tags, "actual_user_id": ownerID},
	}
	resp, err := g.client.R().SetContext(ctx).SetBody(&body).Post("/v1/memories")
	if err != nil {
		return fmt.Errorf("memory write: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("memory write: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// WriteProfile stores one durable profile fact. It reports success only;
// profile writes are always best-effort.
func (g *Gateway) WriteProfile(ctx context.Context, ownerID, key, value, category string) bool {
	// The category doubles as the episode type on this endpoint.
	entryType := category
	if entryType == "" {
		entryType = defaultProfileType
		category = defaultProfileCategory
	}
	body := writeRequest{
		Session:        profileSessionFor(ownerID),
		Producer:       ownerID,
		ProducedFor:    ownerID,
		EpisodeContent: fmt.Sprintf("%s: %s", key, value),
		EpisodeType:    entryType,
		Metadata: map[string]any{
			"type":           "profile",
			"key":            key,
			"value":          value,
			"category":       category,
			"actual_user_id": ownerID,
		},
	}
	resp, err := g.client.R().SetContext(ctx).SetBody(&body).Post("/v1/memories/profile")
	if err != nil {
		g.log.Warn().Err(err).Str("owner", ownerID).Str("key", key).Msg("profile write failed")
		return false
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		g.log.Warn().Int("status", resp.StatusCode()).Str("owner", ownerID).Str("key", key).Msg("profile write rejected")
		return false
	}
	return true
}

// Search returns up to topK episodic memories for ownerID. The request
// over-fetches (topK*3) because records for other owners may come back and
// are dropped client side. Failures yield an empty slice, never an error.
func (g *Gateway) Search(ctx context.Context, ownerID, query string, topK int) []model.MemoryRecord {
	body := searchRequest{
		Session: sessionFor(ownerID),
		Query:   query,
		Limit:   topK * 3,
	}
	resp, err := g.client.R().SetContext(ctx).SetBody(&body).Post("/v1/memories/search")
	if err != nil {
		g.log.Warn().Err(err).Str("owner", ownerID).Msg("memory search failed")
		return nil
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		g.log.Warn().Int("status", resp.StatusCode()).Str("owner", ownerID).Msg("memory search rejected")
		return nil
	}
	raw, shape := unwrapRecords(resp.Body())
	if shape == shapeUnrecognized {
		g.log.Warn().Str("owner", ownerID).Msg("unrecognized memory search response shape")
		return nil
	}
	out := make([]model.MemoryRecord, 0, topK)
	for _, r := range raw {
		if r.ownerID() != ownerID {
			continue
		}
		content := r.text()
		if content == "" {
			continue
		}
		out = append(out, model.MemoryRecord{
			OwnerID:   ownerID,
			Content:   content,
			Tags:      r.tags(),
			CreatedAt: r.createdAt(),
		})
		if len(out) == topK {
			break
		}
	}
	return out
}

// SearchProfile returns stored profile facts for ownerID, optionally
// narrowed to a category. Failures yield an empty slice.
func (g *Gateway) SearchProfile(ctx context.Context, ownerID, category string) []model.ProfileFact {
	body := searchRequest{
		Session: profileSessionFor(ownerID),
		Query:   profileQuery,
		Filter:  map[string]any{"produced_for_id": ownerID},
		Limit:   profileSearchLimit,
	}
	resp, err := g.client.R().SetContext(ctx).SetBody(&body).Post("/v1/memories/profile/search")
	if err != nil {
		g.log.Warn().Err(err).Str("owner", ownerID).Msg("profile search failed")
		return nil
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		g.log.Warn().Int("status", resp.StatusCode()).Str("owner", ownerID).Msg("profile search rejected")
		return nil
	}
	raw, shape := unwrapRecords(resp.Body())
	if shape == shapeUnrecognized {
		g.log.Warn().Str("owner", ownerID).Msg("unrecognized profile search response shape")
		return nil
	}
	var out []model.ProfileFact
	for _, r := range raw {
		// Backend versions tag the owner differently.
		if r.producedForID() != ownerID && r.ownerID() != ownerID {
			continue
		}
		content := r.text()
		if content == "" {
			continue
		}
		if category != "" && r.category() != "" && r.category() != category {
			continue
		}
		out = append(out, model.ProfileFact{
			OwnerID:  ownerID,
			Key:      r.metaString("key"),
			Value:    r.metaString("value"),
			Category: r.category(),
			Content:  content,
		})
	}
	return out
}

// StoreDual writes one episodic record and a profile fact per entry in
// profile. Profile entries named "category" set the category of the rest
// instead of becoming facts themselves. Partial success is acceptable.
func (g *Gateway) StoreDual(ctx context.Context, ownerID, episodicText string, profile map[string]string, tags []string) error {
	err := g.Write(ctx, ownerID, episodicText, tags)
	if err != nil {
		g.log.Warn().Err(err).Str("owner", ownerID).Msg("dual store: episodic write failed")
	}
	category := profile["category"]
	if category == "" {
		category = defaultProfileCategory
	}
	for key, value := range profile {
		if key == "category" || value == "" {
			continue
		}
		g.WriteProfile(ctx, ownerID, key, value, category)
	}
	return err
}

// Health probes the memory service and returns its raw health body.
func (g *Gateway) Health(ctx context.Context) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	resp, err := g.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return nil, fmt.Errorf("memory service health: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("memory service health: status %d", resp.StatusCode())
	}
	return json.RawMessage(resp.Body()), nil
}
