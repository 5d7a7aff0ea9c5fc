package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/memorycare/memorycare-backend/internal/llm"
	"github.com/memorycare/memorycare-backend/internal/model"
	"github.com/memorycare/memorycare-backend/internal/schedule"
	"github.com/memorycare/memorycare-backend/internal/store"
)

// SystemStartMessage triggers greeting mode: the assistant opens the
// conversation instead of answering a user message.
const SystemStartMessage = "__SYSTEM_START__"

var emotionalKeywords = []string{
	"feeling", "today", "tired", "happy", "sad", "enjoyed", "worried", "anxious",
}

// MemoryGateway is the slice of the memory store client the chat pipeline
// needs. Satisfied by *memstore.Gateway.
type MemoryGateway interface {
	Write(ctx context.Context, ownerID, text string, tags []string) error
	WriteProfile(ctx context.Context, ownerID, key, value, category string) bool
	Search(ctx context.Context, ownerID, query string, topK int) []model.MemoryRecord
	SearchProfile(ctx context.Context, ownerID, category string) []model.ProfileFact
}

// Service runs one chat turn: retrieve context, fuse it, complete, then
// extract and persist what the turn revealed. Every post-completion step
// is fail-open; a reply is always produced.
type Service struct {
	store     store.Store
	mem       MemoryGateway
	llm       llm.Chat
	extractor *Extractor
	log       zerolog.Logger
	now       func() time.Time

	topK      int
	retryTopK int
}

func NewService(st store.Store, mem MemoryGateway, c llm.Chat, topK, retryTopK int, log zerolog.Logger) *Service {
	return &Service{
		store:     st,
		mem:       mem,
		llm:       c,
		extractor: NewExtractor(c, log),
		log:       log.With().Str("component", "chat").Logger(),
		now:       time.Now,
		topK:      topK,
		retryTopK: retryTopK,
	}
}

// Result is returned to the chat handler; the counters exist for
// debugging on the caller side.
type Result struct {
	Reply                 string   `json:"reply"`
	EpisodicMemoriesUsed  int      `json:"episodic_memories_used"`
	ProfileFactsAvailable int      `json:"profile_facts_available"`
	Goals                 []string `json:"goals"`
}

// Turn executes a full chat turn for ownerID.
func (s *Service) Turn(ctx context.Context, ownerID, message string) Result {
	isSystemStart := message == SystemStartMessage

	query := message
	if isSystemStart {
		query = "all memories"
	}
	episodic := s.mem.Search(ctx, ownerID, query, s.topK)
	if len(episodic) == 0 {
		episodic = s.mem.Search(ctx, ownerID, "all memories", s.retryTopK)
	}
	profile := s.mem.SearchProfile(ctx, ownerID, "")

	patient, err := s.store.Patients().GetByUsername(ctx, ownerID)
	if err != nil {
		// Unknown patients still get memory-backed replies.
		s.log.Warn().Err(err).Str("owner", ownerID).Msg("patient lookup failed")
		patient = nil
	}

	var meds []*model.Medication
	var goals []*model.Goal
	if patient != nil {
		if _, err := s.store.Medications().DeactivateExpired(ctx, patient.ID, s.now()); err != nil {
			s.log.Warn().Err(err).Msg("medication expiry sweep failed")
		}
		if meds, err = s.store.Medications().ListActive(ctx, patient.ID); err != nil {
			s.log.Warn().Err(err).Msg("medication list failed")
		}
		if goals, err = s.store.Goals().ListOpen(ctx, patient.ID); err != nil {
			s.log.Warn().Err(err).Msg("goal list failed")
		}
	}

	medicationStatus := s.medicationStatus(ctx, meds)
	fused := Fuse(episodic, profile, supplementFrom(patient))

	reply := s.complete(ctx, ownerID, message, isSystemStart, patient, meds, goals, medicationStatus, fused)

	if !isSystemStart {
		s.runExtraction(ctx, ownerID, message, reply)
		reply = s.checkGoalCompletion(ctx, ownerID, patient, goals, message, reply)
		s.extractProfileFacts(ctx, ownerID, message, reply)
		s.recordEmotionalCheckIn(ctx, ownerID, message)
	}

	goalTexts := make([]string, 0, len(goals))
	for _, g := range goals {
		goalTexts = append(goalTexts, g.Text)
	}
	return Result{
		Reply:                 reply,
		EpisodicMemoriesUsed:  len(episodic),
		ProfileFactsAvailable: len(profile),
		Goals:                 goalTexts,
	}
}

func supplementFrom(p *model.Patient) StructuredFacts {
	if p == nil {
		return StructuredFacts{}
	}
	return StructuredFacts{
		FamilyInfo:            deref(p.FamilyInfo),
		Hobbies:               deref(p.Hobbies),
		EmergencyContactName:  deref(p.EmergencyContactName),
		EmergencyContactPhone: deref(p.EmergencyContactPhone),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// medicationStatus renders per-medication taken/remaining lines for today.
func (s *Service) medicationStatus(ctx context.Context, meds []*model.Medication) string {
	if len(meds) == 0 {
		return "No active medications"
	}
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var lines []string
	for _, m := range meds {
		taken, err := s.store.MedicationLogs().CountSince(ctx, m.ID, startOfDay)
		if err != nil {
			s.log.Warn().Err(err).Str("medication", m.Name).Msg("dose count failed")
			continue
		}
		remaining := m.TimesPerDay - taken
		if remaining > 0 {
			lines = append(lines, fmt.Sprintf("⚠️ %s: %d/%d taken, %d remaining today", m.Name, taken, m.TimesPerDay, remaining))
		} else {
			lines = append(lines, fmt.Sprintf("✅ %s: All doses complete (%d/%d)", m.Name, m.TimesPerDay, m.TimesPerDay))
		}
	}
	if len(lines) == 0 {
		return "No active medications"
	}
	return strings.Join(lines, "\n")
}

func (s *Service) complete(ctx context.Context, ownerID, message string, isSystemStart bool, patient *model.Patient, meds []*model.Medication, goals []*model.Goal, medicationStatus string, fused FusedContext) string {
	fullName := ownerID
	hobbies := "No hobbies listed"
	emergencyContact := "Emergency Contact: Not provided"
	if patient != nil {
		fullName = patient.FullName
		if h := deref(patient.Hobbies); h != "" {
			hobbies = h
		}
		if name := deref(patient.EmergencyContactName); name != "" {
			emergencyContact = "Emergency Contact: " + name
			if phone := deref(patient.EmergencyContactPhone); phone != "" {
				emergencyContact += " - Phone: " + phone
			}
		}
	}

	if isSystemStart {
		payload := fmt.Sprintf(
			"Start a warm, welcoming conversation with %s. Their hobbies include: %s. Greet them warmly and ask how they're doing today.",
			fullName, hobbies)
		return s.llm.Chat(ctx, greetingSystemPrompt, []llm.Message{{Role: "user", Content: payload}})
	}

	goalsLine := "None right now."
	if len(goals) > 0 {
		texts := make([]string, len(goals))
		for i, g := range goals {
			texts[i] = g.Text
		}
		goalsLine = strings.Join(texts, ", ")
	}

	medsLine := "None"
	if len(meds) > 0 {
		names := make([]string, len(meds))
		for i, m := range meds {
			names[i] = m.Name
		}
		medsLine = strings.Join(names, ", ")
	}

	var dueLines []string
	now := s.now()
	for _, m := range meds {
		if msg, due := schedule.NextDueWindow(now, m.TimesPerDay, deref(m.SpecificTimes)); due {
			dueLines = append(dueLines, strings.TrimSpace(m.Name+": "+msg+" "+deref(m.Instructions)))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User said: %s\n\n", message)
	fmt.Fprintf(&b, "=== MEDICATION STATUS TODAY ===\n%s\n\n", medicationStatus)
	fmt.Fprintf(&b, "=== PROFILE INFORMATION (Use this to answer questions) ===\n%s\n\n", fused.ProfileText)
	fmt.Fprintf(&b, "=== RECENT MEMORIES ===\n%s\n\n", fused.EpisodicText)
	b.WriteString("Additional Info:\n")
	fmt.Fprintf(&b, "- Full Name: %s\n", fullName)
	fmt.Fprintf(&b, "- Hobbies: %s\n", hobbies)
	fmt.Fprintf(&b, "- Goals: %s\n", goalsLine)
	fmt.Fprintf(&b, "- Medications: %s\n", medsLine)
	fmt.Fprintf(&b, "- %s\n", emergencyContact)
	for _, d := range dueLines {
		fmt.Fprintf(&b, "- Due now: %s\n", d)
	}

	return s.llm.Chat(ctx, companionSystemPrompt, []llm.Message{{Role: "user", Content: b.String()}})
}

// runExtraction gates, extracts and persists facts from this turn. Write
// failures are logged and never block the batch.
func (s *Service) runExtraction(ctx context.Context, ownerID, message, reply string) {
	if !ShouldExtract(message) {
		s.log.Debug().Msg("extraction skipped by gate")
		return
	}
	routed := s.extractor.ExtractAndRoute(ctx, ownerID, message, reply)
	for _, mem := range routed {
		if err := s.mem.Write(ctx, mem.TargetOwnerID, mem.Text, []string{mem.Category}); err != nil {
			s.log.Warn().Err(err).Str("target", mem.TargetOwnerID).Msg("extracted memory write failed")
		}
	}
	s.log.Debug().Int("stored", len(routed)).Msg("extraction complete")
}

// checkGoalCompletion asks the model whether the message completes any
// open goal and, if so, marks them done and appends a celebration.
func (s *Service) checkGoalCompletion(ctx context.Context, ownerID string, patient *model.Patient, goals []*model.Goal, message, reply string) string {
	if patient == nil || len(goals) == 0 {
		return reply
	}
	texts := make([]string, len(goals))
	for i, g := range goals {
		texts[i] = g.Text
	}
	raw := s.llm.Chat(ctx, goalCheckSystemPrompt, []llm.Message{
		{Role: "user", Content: goalCheckPrompt(texts, message)},
	})
	var completed []string
	if err := json.Unmarshal([]byte(raw), &completed); err != nil || len(completed) == 0 {
		return reply
	}

	now := s.now()
	var done []string
	for _, g := range goals {
		for _, c := range completed {
			if strings.EqualFold(g.Text, c) {
				if err := s.store.Goals().Complete(ctx, g.ID, now); err != nil {
					s.log.Warn().Err(err).Str("goal", g.Text).Msg("goal completion update failed")
					continue
				}
				done = append(done, g.Text)
				break
			}
		}
	}
	if len(done) == 0 {
		return reply
	}

	remainingText := "No active goals now 🎉"
	if remaining, err := s.store.Goals().ListOpen(ctx, patient.ID); err == nil && len(remaining) > 0 {
		names := make([]string, len(remaining))
		for i, g := range remaining {
			names[i] = g.Text
		}
		remainingText = strings.Join(names, ", ")
	}

	record := fmt.Sprintf("Goal completed on %s: %s", now.Format("2006-01-02"), strings.Join(done, ", "))
	if err := s.mem.Write(ctx, ownerID, record, []string{"goal_completion", "achievement"}); err != nil {
		s.log.Warn().Err(err).Msg("goal completion memory write failed")
	}

	return reply + fmt.Sprintf(
		"\n🎉 That's wonderful! Congratulations on completing: %s. You're doing great! Active goals now: %s",
		strings.Join(done, ", "), remainingText)
}

// extractProfileFacts asks the model for new durable facts as a JSON
// object and stores each string value as a profile fact.
func (s *Service) extractProfileFacts(ctx context.Context, ownerID, message, reply string) {
	raw := s.llm.Chat(ctx, profileExtractionSystemPrompt, []llm.Message{
		{Role: "user", Content: profileExtractionPrompt(message, reply)},
	})
	var facts map[string]any
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		return
	}
	for key, v := range facts {
		value, ok := v.(string)
		if !ok || value == "" {
			continue
		}
		s.mem.WriteProfile(ctx, ownerID, key, value, "learned_preferences")
	}
}

// recordEmotionalCheckIn stores the whole message when it mentions an
// emotional state, for later wellbeing review.
func (s *Service) recordEmotionalCheckIn(ctx context.Context, ownerID, message string) {
	lower := strings.ToLower(message)
	for _, kw := range emotionalKeywords {
		if strings.Contains(lower, kw) {
			record := fmt.Sprintf("Emotional check-in on %s: %s", s.now().Format("2006-01-02"), message)
			if err := s.mem.Write(ctx, ownerID, record, []string{"emotional", "wellbeing"}); err != nil {
				s.log.Warn().Err(err).Msg("emotional check-in write failed")
			}
			return
		}
	}
}
