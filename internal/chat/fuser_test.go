package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memorycare/memorycare-backend/internal/model"
)

func TestFuseFormatsBothBlocks(t *testing.T) {
	episodic := []model.MemoryRecord{
		{Content: "went to the park"},
		{Content: "  "},
		{Content: "called my daughter"},
	}
	profile := []model.ProfileFact{
		{Content: "likes: gardening"},
	}
	sup := StructuredFacts{
		FamilyInfo:            "two daughters",
		Hobbies:               "chess",
		EmergencyContactName:  "Ann Lee",
		EmergencyContactPhone: "555-0101",
	}

	fused := Fuse(episodic, profile, sup)
	require.Equal(t, "- went to the park\n- called my daughter", fused.EpisodicText)
	require.Equal(t,
		"- likes: gardening\n- Family: two daughters\n- Hobbies: chess\n- Emergency Contact: Ann Lee - Phone: 555-0101",
		fused.ProfileText)
}

func TestFuseNeverEmitsEmptySections(t *testing.T) {
	fused := Fuse(nil, nil, StructuredFacts{})
	require.Equal(t, "No recent memories.", fused.EpisodicText)
	require.Equal(t, "No profile information.", fused.ProfileText)

	// Whitespace-only records still fall back to sentinels.
	fused = Fuse([]model.MemoryRecord{{Content: " "}}, []model.ProfileFact{{Content: ""}}, StructuredFacts{})
	require.Equal(t, "No recent memories.", fused.EpisodicText)
	require.Equal(t, "No profile information.", fused.ProfileText)
}

func TestFuseContactWithoutPhone(t *testing.T) {
	fused := Fuse(nil, nil, StructuredFacts{EmergencyContactName: "Ann Lee"})
	require.Equal(t, "- Emergency Contact: Ann Lee", fused.ProfileText)
}

func TestFuseDuplicatesAreKept(t *testing.T) {
	profile := []model.ProfileFact{{Content: "Hobbies: chess"}}
	fused := Fuse(nil, profile, StructuredFacts{Hobbies: "chess"})
	require.Equal(t, "- Hobbies: chess\n- Hobbies: chess", fused.ProfileText)
}
