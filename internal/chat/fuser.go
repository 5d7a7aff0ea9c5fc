package chat

import (
	"fmt"
	"strings"

	"github.com/memorycare/memorycare-backend/internal/model"
)

// Sentinel blocks used when a context section would otherwise be empty;
// the prompt always carries both sections.
const (
	noMemoriesSentinel = "No recent memories."
	noProfileSentinel  = "No profile information."
)

// StructuredFacts carries relational fields merged into the profile block
// as a backup for missing profile memories. Zero values mean "unknown" and
// are skipped, not errors.
type StructuredFacts struct {
	FamilyInfo            string
	Hobbies               string
	EmergencyContactName  string
	EmergencyContactPhone string
}

// FusedContext is a pair of prompt-ready text blocks.
type FusedContext struct {
	EpisodicText string
	ProfileText  string
}

// Fuse renders episodic records and profile facts into the two context
// blocks. Lines keep source order and lead with "- "; duplication between
// profile facts and relational supplements is accepted as-is.
func Fuse(episodic []model.MemoryRecord, profile []model.ProfileFact, supplement StructuredFacts) FusedContext {
	var episodicLines []string
	for _, r := range episodic {
		if s := strings.TrimSpace(r.Content); s != "" {
			episodicLines = append(episodicLines, s)
		}
	}

	var profileLines []string
	for _, p := range profile {
		if s := strings.TrimSpace(p.Content); s != "" {
			profileLines = append(profileLines, s)
		}
	}
	if supplement.FamilyInfo != "" {
		profileLines = append(profileLines, "Family: "+supplement.FamilyInfo)
	}
	if supplement.Hobbies != "" {
		profileLines = append(profileLines, "Hobbies: "+supplement.Hobbies)
	}
	if supplement.EmergencyContactName != "" {
		line := "Emergency Contact: " + supplement.EmergencyContactName
		if supplement.EmergencyContactPhone != "" {
			line += " - Phone: " + supplement.EmergencyContactPhone
		}
		profileLines = append(profileLines, line)
	}

	return FusedContext{
		EpisodicText: bulletBlock(episodicLines, noMemoriesSentinel),
		ProfileText:  bulletBlock(profileLines, noProfileSentinel),
	}
}

func bulletBlock(lines []string, sentinel string) string {
	if len(lines) == 0 {
		return sentinel
	}
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s", l)
	}
	return b.String()
}
