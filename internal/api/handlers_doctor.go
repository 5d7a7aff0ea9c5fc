package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/memorycare/memorycare-backend/internal/api/respond"
	"github.com/memorycare/memorycare-backend/internal/model"
	"github.com/memorycare/memorycare-backend/internal/store"
)

const defaultMedicationDays = 7

// DoctorHandler serves the doctor-facing patient management routes.
type DoctorHandler struct {
	store store.Store
	mem   Memory
	log   zerolog.Logger
	now   func() time.Time
}

func NewDoctorHandler(st store.Store, mem Memory, log zerolog.Logger) *DoctorHandler {
	return &DoctorHandler{store: st, mem: mem, log: log, now: time.Now}
}

// ListPatients GET /doctor/patients
func (h *DoctorHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.store.Patients().List(r.Context())
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(patients))
	for _, p := range patients {
		out = append(out, map[string]any{"username": p.Username, "full_name": p.FullName, "id": p.ID})
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "patients": out})
}

type medicationRequest struct {
	PatientUsername string `json:"patient_username"`
	Name            string `json:"name"`
	TimesPerDay     int    `json:"times_per_day"`
	SpecificTimes   string `json:"specific_times"`
	Instructions    string `json:"instructions"`
	Active          bool   `json:"active"`
}

// AddMedication POST /doctor/medications?duration_days=N
func (h *DoctorHandler) AddMedication(w http.ResponseWriter, r *http.Request) {
	var req medicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.PatientUsername == "" || req.Name == "" {
		respond.WriteBadRequest(w, "patient_username and name are required")
		return
	}
	durationDays := defaultMedicationDays
	if v := r.URL.Query().Get("duration_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respond.WriteBadRequest(w, "duration_days must be a positive integer")
			return
		}
		durationDays = n
	}

	patient, err := h.store.Patients().GetByUsername(r.Context(), req.PatientUsername)
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "Patient not found")
		return
	} else if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}

	if _, err := h.store.Medications().GetActiveByName(r.Context(), patient.ID, req.Name); err == nil {
		respond.WriteBadRequest(w, fmt.Sprintf("Active medication %q already exists", req.Name))
		return
	} else if !errors.Is(err, model.ErrNotFound) {
		respond.WriteInternalError(w, err.Error())
		return
	}

	start := h.now()
	end := start.AddDate(0, 0, durationDays)
	med := &model.Medication{
		PatientID:   patient.ID,
		Name:        req.Name,
		TimesPerDay: req.TimesPerDay,
		Active:      req.Active,
		StartDate:   start,
		EndDate:     &end,
	}
	if req.SpecificTimes != "" {
		med.SpecificTimes = &req.SpecificTimes
	}
	if req.Instructions != "" {
		med.Instructions = &req.Instructions
	}
	if _, err := h.store.Medications().Create(r.Context(), med); err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}

	episodic := fmt.Sprintf("Doctor added new medication '%s' on %s.", req.Name, start.Format("2006-01-02"))
	profile := map[string]string{
		"medication_" + profileKey(req.Name): fmt.Sprintf("%s - %dx daily at %s", req.Name, req.TimesPerDay, req.SpecificTimes),
		"category":                           "medical_info",
	}
	if err := h.mem.StoreDual(r.Context(), req.PatientUsername, episodic, profile, []string{"medication", "doctor_action"}); err != nil {
		h.log.Warn().Err(err).Msg("medication memory write incomplete")
	}

	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Medication added"})
}

// PatientMedications GET /doctor/patient-medications?patient_username=X
func (h *DoctorHandler) PatientMedications(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.lookupPatient(w, r)
	if !ok {
		return
	}
	meds, err := h.store.Medications().List(r.Context(), patient.ID)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	out, err := h.medicationsWithLogs(r, meds)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "medications": out})
}

// AddGoal POST /doctor/goals?patient_username=X
func (h *DoctorHandler) AddGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Text == "" {
		respond.WriteBadRequest(w, "text is required")
		return
	}
	patient, ok := h.lookupPatient(w, r)
	if !ok {
		return
	}
	if _, err := h.store.Goals().Create(r.Context(), &model.Goal{PatientID: patient.ID, Text: req.Text}); err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}

	now := h.now()
	episodic := fmt.Sprintf("Doctor assigned new goal on %s: %s", now.Format("2006-01-02"), req.Text)
	profile := map[string]string{
		"active_goal_" + now.Format("20060102_150405"): req.Text,
		"category": "goals",
	}
	if err := h.mem.StoreDual(r.Context(), patient.Username, episodic, profile, []string{"goal", "doctor_action"}); err != nil {
		h.log.Warn().Err(err).Msg("goal memory write incomplete")
	}

	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Goal assigned"})
}

// PatientGoals GET /doctor/patient-goals?patient_username=X
func (h *DoctorHandler) PatientGoals(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.lookupPatient(w, r)
	if !ok {
		return
	}
	goals, err := h.store.Goals().List(r.Context(), patient.ID)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(goals))
	for _, g := range goals {
		var completedAtStr *string
		if g.CompletedAt != nil {
			s := g.CompletedAt.Format("2006-01-02 15:04")
			completedAtStr = &s
		}
		out = append(out, map[string]any{
			"id":               g.ID,
			"patient_id":       g.PatientID,
			"text":             g.Text,
			"completed":        g.Completed,
			"created_at":       g.CreatedAt,
			"completed_at":     g.CompletedAt,
			"completed_at_str": completedAtStr,
		})
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "goals": out})
}

func (h *DoctorHandler) lookupPatient(w http.ResponseWriter, r *http.Request) (*model.Patient, bool) {
	username := r.URL.Query().Get("patient_username")
	if username == "" {
		respond.WriteBadRequest(w, "patient_username is required")
		return nil, false
	}
	patient, err := h.store.Patients().GetByUsername(r.Context(), username)
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "Patient not found")
		return nil, false
	} else if err != nil {
		respond.WriteInternalError(w, err.Error())
		return nil, false
	}
	return patient, true
}

// medicationsWithLogs renders the medication+history shape shared by the
// doctor and patient views.
func (h *DoctorHandler) medicationsWithLogs(r *http.Request, meds []*model.Medication) ([]map[string]any, error) {
	return medicationsWithLogs(r, h.store, meds)
}

func medicationsWithLogs(r *http.Request, st store.Store, meds []*model.Medication) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(meds))
	for _, m := range meds {
		logs, err := st.MedicationLogs().List(r.Context(), m.ID)
		if err != nil {
			return nil, err
		}
		logOut := make([]map[string]any, 0, len(logs))
		for _, l := range logs {
			logOut = append(logOut, map[string]any{
				"date":       l.Date.Format("2006-01-02"),
				"time_taken": l.TimeTaken,
				"taken":      l.Taken,
			})
		}
		out = append(out, map[string]any{
			"name":           m.Name,
			"times_per_day":  m.TimesPerDay,
			"specific_times": m.SpecificTimes,
			"instructions":   m.Instructions,
			"logs":           logOut,
		})
	}
	return out, nil
}

func profileKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
