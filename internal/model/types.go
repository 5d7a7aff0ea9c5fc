package model

import "time"

// Patient is the core account record for a person receiving care.
type Patient struct {
	ID                    int64     `json:"id"`
	Username              string    `json:"username"`
	Password              string    `json:"-"`
	FullName              string    `json:"fullName"`
	FamilyInfo            *string   `json:"familyInfo,omitempty"`
	EmergencyContactName  *string   `json:"emergencyContactName,omitempty"`
	EmergencyContactPhone *string   `json:"emergencyContactPhone,omitempty"`
	Hobbies               *string   `json:"hobbies,omitempty"`
	CreationTime          time.Time `json:"creationTime"`
}

// Medication is a prescribed medication schedule for a patient.
type Medication struct {
	ID            int64      `json:"id"`
	PatientID     int64      `json:"patientId"`
	Name          string     `json:"name"`
	TimesPerDay   int        `json:"timesPerDay"`
	SpecificTimes *string    `json:"specificTimes,omitempty"`
	Instructions  *string    `json:"instructions,omitempty"`
	Active        bool       `json:"active"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	CreationTime  time.Time  `json:"creationTime"`
}

// MedicationLog records a single dose taken by a patient.
type MedicationLog struct {
	ID           int64     `json:"id"`
	MedicationID int64     `json:"medicationId"`
	Date         time.Time `json:"date"`
	TimeTaken    *string   `json:"timeTaken,omitempty"`
	Taken        bool      `json:"taken"`
}

// Goal is a care goal assigned by a doctor to a patient.
type Goal struct {
	ID          int64      `json:"id"`
	PatientID   int64      `json:"patientId"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// MemoryRecord is an episodic memory returned by the memory store.
// Records are immutable once written; new facts supersede, never update.
type MemoryRecord struct {
	OwnerID   string   `json:"ownerId"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// ProfileFact is a durable key-value attribute about a user. The store does
// not enforce key uniqueness; readers must tolerate stale duplicates.
type ProfileFact struct {
	OwnerID  string `json:"ownerId"`
	Key      string `json:"key,omitempty"`
	Value    string `json:"value,omitempty"`
	Category string `json:"category,omitempty"`
	Content  string `json:"content"`
}

// RoutedMemory is a fact extracted from a conversation turn, addressed to
// the user it should be stored under. It is consumed immediately by the
// memory gateway write path and never persisted as its own entity.
type RoutedMemory struct {
	TargetOwnerID string `json:"targetOwnerId"`
	Text          string `json:"text"`
	Category      string `json:"category"`
}
