package store

import (
	"context"
	"time"

	"github.com/memorycare/memorycare-backend/internal/model"
)

// Store exposes persistence operations required by handlers and the chat
// pipeline. Implementations live under internal/store/<driver>/.
type Store interface {
	Patients() Patients
	Medications() Medications
	MedicationLogs() MedicationLogs
	Goals() Goals

	HealthPing(ctx context.Context) error
}

type Patients interface {
	Create(ctx context.Context, p *model.Patient) (*model.Patient, error)
	GetByUsername(ctx context.Context, username string) (*model.Patient, error)
	List(ctx context.Context) ([]*model.Patient, error)
}

type Medications interface {
	Create(ctx context.Context, m *model.Medication) (*model.Medication, error)
	ListActive(ctx context.Context, patientID int64) ([]*model.Medication, error)
	List(ctx context.Context, patientID int64) ([]*model.Medication, error)
	GetActiveByName(ctx context.Context, patientID int64, name string) (*model.Medication, error)
	// DeactivateExpired clears the active flag on medications whose end date
	// falls before asOf. Returns the number of rows changed.
	DeactivateExpired(ctx context.Context, patientID int64, asOf time.Time) (int64, error)
}

type MedicationLogs interface {
	Create(ctx context.Context, l *model.MedicationLog) (*model.MedicationLog, error)
	List(ctx context.Context, medicationID int64) ([]*model.MedicationLog, error)
	CountSince(ctx context.Context, medicationID int64, since time.Time) (int, error)
}

type Goals interface {
	Create(ctx context.Context, g *model.Goal) (*model.Goal, error)
	ListOpen(ctx context.Context, patientID int64) ([]*model.Goal, error)
	List(ctx context.Context, patientID int64) ([]*model.Goal, error)
	Complete(ctx context.Context, goalID int64, at time.Time) error
}
