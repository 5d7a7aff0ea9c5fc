package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/memorycare/memorycare-backend/internal/api/respond"
	"github.com/memorycare/memorycare-backend/internal/model"
	"github.com/memorycare/memorycare-backend/internal/store"
)

// PatientHandler serves the patient-facing self-service routes. The
// resolved identity in the request context names the patient.
type PatientHandler struct {
	store store.Store
	mem   Memory
	log   zerolog.Logger
	now   func() time.Time
}

func NewPatientHandler(st store.Store, mem Memory, log zerolog.Logger) *PatientHandler {
	return &PatientHandler{store: st, mem: mem, log: log, now: time.Now}
}

func (h *PatientHandler) self(w http.ResponseWriter, r *http.Request) (*model.Patient, bool) {
	id := identityFrom(r)
	patient, err := h.store.Patients().GetByUsername(r.Context(), id.Username)
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "Patient not found")
		return nil, false
	} else if err != nil {
		respond.WriteInternalError(w, err.Error())
		return nil, false
	}
	return patient, true
}

// ListGoals GET /patient/goals
func (h *PatientHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.self(w, r)
	if !ok {
		return
	}
	goals, err := h.store.Goals().ListOpen(r.Context(), patient.ID)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "goals": goals})
}

// ListMedications GET /patient/medications
func (h *PatientHandler) ListMedications(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.self(w, r)
	if !ok {
		return
	}
	if _, err := h.store.Medications().DeactivateExpired(r.Context(), patient.ID, h.now()); err != nil {
		h.log.Warn().Err(err).Msg("medication expiry sweep failed")
	}
	meds, err := h.store.Medications().ListActive(r.Context(), patient.ID)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	out, err := medicationsWithLogs(r, h.store, meds)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "medications": out})
}

// LogMedication POST /patient/medications/log?med_name=X
func (h *PatientHandler) LogMedication(w http.ResponseWriter, r *http.Request) {
	medName := r.URL.Query().Get("med_name")
	if medName == "" {
		respond.WriteBadRequest(w, "med_name is required")
		return
	}
	patient, ok := h.self(w, r)
	if !ok {
		return
	}

	med, err := h.store.Medications().GetActiveByName(r.Context(), patient.ID, medName)
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "Medication not found")
		return
	} else if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}

	now := h.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	taken, err := h.store.MedicationLogs().CountSince(r.Context(), med.ID, startOfDay)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	if taken >= med.TimesPerDay {
		respond.WriteBadRequest(w, fmt.Sprintf("Already logged %d doses today", med.TimesPerDay))
		return
	}

	timeTaken := now.Format("15:04")
	if _, err := h.store.MedicationLogs().Create(r.Context(), &model.MedicationLog{
		MedicationID: med.ID,
		Date:         now,
		TimeTaken:    &timeTaken,
		Taken:        true,
	}); err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}

	record := fmt.Sprintf("Took %s at %s on %s", medName, now.Format("15:04"), now.Format("2006-01-02"))
	if err := h.mem.Write(r.Context(), patient.Username, record, []string{"medication_log"}); err != nil {
		h.log.Warn().Err(err).Msg("medication log memory write failed")
	}

	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "message": fmt.Sprintf("Logged %s as taken.", medName)})
}
