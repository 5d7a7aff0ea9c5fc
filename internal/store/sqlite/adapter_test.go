package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memorycare/memorycare-backend/internal/model"
	"github.com/memorycare/memorycare-backend/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Bootstrap(db))
	return New(db)
}

func strPtr(s string) *string { return &s }

func TestPatients_CreateAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p, err := st.Patients().Create(ctx, &model.Patient{
		Username: "molly",
		Password: "pw",
		FullName: "Molly Jones",
		Hobbies:  strPtr("hiking, painting"),
	})
	require.NoError(t, err)
	require.NotZero(t, p.ID)

	got, err := st.Patients().GetByUsername(ctx, "molly")
	require.NoError(t, err)
	require.Equal(t, "Molly Jones", got.FullName)
	require.NotNil(t, got.Hobbies)
	require.Equal(t, "hiking, painting", *got.Hobbies)
	require.Nil(t, got.FamilyInfo)

	_, err = st.Patients().GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestMedications_ActiveLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p, err := st.Patients().Create(ctx, &model.Patient{Username: "molly", Password: "pw", FullName: "Molly"})
	require.NoError(t, err)

	past := time.Now().UTC().Add(-48 * time.Hour)
	_, err = st.Medications().Create(ctx, &model.Medication{
		PatientID: p.ID, Name: "aspirin", TimesPerDay: 2, Active: true, EndDate: &past,
	})
	require.NoError(t, err)
	_, err = st.Medications().Create(ctx, &model.Medication{
		PatientID: p.ID, Name: "vitamin d", TimesPerDay: 1, Active: true,
	})
	require.NoError(t, err)

	n, err := st.Medications().DeactivateExpired(ctx, p.ID, time.Now().UTC())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	active, err := st.Medications().ListActive(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "vitamin d", active[0].Name)

	all, err := st.Medications().List(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	md, err := st.Medications().GetActiveByName(ctx, p.ID, "vitamin d")
	require.NoError(t, err)
	require.Equal(t, 1, md.TimesPerDay)

	_, err = st.Medications().GetActiveByName(ctx, p.ID, "aspirin")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestMedicationLogs_CountSince(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p, err := st.Patients().Create(ctx, &model.Patient{Username: "molly", Password: "pw", FullName: "Molly"})
	require.NoError(t, err)
	md, err := st.Medications().Create(ctx, &model.Medication{PatientID: p.ID, Name: "aspirin", TimesPerDay: 2, Active: true})
	require.NoError(t, err)

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	_, err = st.MedicationLogs().Create(ctx, &model.MedicationLog{MedicationID: md.ID, Date: yesterday, Taken: true})
	require.NoError(t, err)
	_, err = st.MedicationLogs().Create(ctx, &model.MedicationLog{MedicationID: md.ID, Taken: true, TimeTaken: strPtr("09:15")})
	require.NoError(t, err)

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	n, err := st.MedicationLogs().CountSince(ctx, md.ID, startOfDay)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	logs, err := st.MedicationLogs().List(ctx, md.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestGoals_CompleteOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p, err := st.Patients().Create(ctx, &model.Patient{Username: "molly", Password: "pw", FullName: "Molly"})
	require.NoError(t, err)
	g, err := st.Goals().Create(ctx, &model.Goal{PatientID: p.ID, Text: "walk 30 minutes"})
	require.NoError(t, err)

	open, err := st.Goals().ListOpen(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, st.Goals().Complete(ctx, g.ID, time.Now().UTC()))

	open, err = st.Goals().ListOpen(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, open)

	// Completing twice reports not found.
	require.ErrorIs(t, st.Goals().Complete(ctx, g.ID, time.Now().UTC()), model.ErrNotFound)

	all, err := st.Goals().List(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Completed)
	require.NotNil(t, all[0].CompletedAt)
}
