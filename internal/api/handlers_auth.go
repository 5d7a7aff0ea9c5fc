package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/memorycare/memorycare-backend/internal/api/respond"
	"github.com/memorycare/memorycare-backend/internal/auth"
	"github.com/memorycare/memorycare-backend/internal/model"
	"github.com/memorycare/memorycare-backend/internal/store"
)

// AuthHandler serves doctor login and patient signup/login.
type AuthHandler struct {
	store  store.Store
	mem    Memory
	tokens auth.Tokens
	log    zerolog.Logger
	now    func() time.Time

	doctorUsername string
	doctorPassword string
}

func NewAuthHandler(st store.Store, mem Memory, tokens auth.Tokens, doctorUsername, doctorPassword string, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:          st,
		mem:            mem,
		tokens:         tokens,
		log:            log,
		now:            time.Now,
		doctorUsername: doctorUsername,
		doctorPassword: doctorPassword,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DoctorLogin POST /auth/doctor/login
func (h *AuthHandler) DoctorLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Username != h.doctorUsername || req.Password != h.doctorPassword {
		respond.WriteUnauthorized(w, "Invalid doctor credentials")
		return
	}
	token := h.tokens.IssueDoctor(req.Username)
	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token, "role": auth.RoleDoctor})
}

type signupRequest struct {
	Username              string `json:"username"`
	Password              string `json:"password"`
	FullName              string `json:"full_name"`
	FamilyInfo            string `json:"family_info"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
	Hobbies               string `json:"hobbies"`
}

// PatientSignup POST /auth/patient/signup
func (h *AuthHandler) PatientSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Username == "" || req.Password == "" || req.FullName == "" {
		respond.WriteBadRequest(w, "username, password and full_name are required")
		return
	}

	if _, err := h.store.Patients().GetByUsername(r.Context(), req.Username); err == nil {
		respond.WriteConflict(w, "Username already exists")
		return
	} else if !errors.Is(err, model.ErrNotFound) {
		respond.WriteInternalError(w, err.Error())
		return
	}

	p := &model.Patient{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
	}
	if req.FamilyInfo != "" {
		p.FamilyInfo = &req.FamilyInfo
	}
	if req.EmergencyContactName != "" {
		p.EmergencyContactName = &req.EmergencyContactName
	}
	if req.EmergencyContactPhone != "" {
		p.EmergencyContactPhone = &req.EmergencyContactPhone
	}
	if req.Hobbies != "" {
		p.Hobbies = &req.Hobbies
	}
	if _, err := h.store.Patients().Create(r.Context(), p); err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}

	token := h.tokens.IssuePatient(req.Username)
	h.bootstrapMemories(r, req)

	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token, "role": auth.RolePatient})
}

// bootstrapMemories seeds the memory store with the signup event and the
// profile facts the form provided. Best-effort: a down memory service must
// not fail the signup.
func (h *AuthHandler) bootstrapMemories(r *http.Request, req signupRequest) {
	ctx := r.Context()
	episodic := fmt.Sprintf("%s signed up for MemoryCare on %s.", req.FullName, h.now().Format("2006-01-02"))
	profile := map[string]string{
		"full_name":               req.FullName,
		"family_info":             orDefault(req.FamilyInfo, "Not provided"),
		"emergency_contact_name":  orDefault(req.EmergencyContactName, "Not provided"),
		"emergency_contact_phone": orDefault(req.EmergencyContactPhone, "Not provided"),
		"hobbies":                 orDefault(req.Hobbies, "Not shared"),
		"category":                "personal_info",
	}
	if req.EmergencyContactPhone != "" {
		combined := fmt.Sprintf("%s - Phone: %s", orDefault(req.EmergencyContactName, "Unknown"), req.EmergencyContactPhone)
		h.mem.WriteProfile(ctx, req.Username, "emergency_contact", combined, "emergency_info")
	}
	if err := h.mem.StoreDual(ctx, req.Username, episodic, profile, []string{"signup", "profile_creation"}); err != nil {
		h.log.Warn().Err(err).Str("username", req.Username).Msg("signup memory bootstrap incomplete")
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// PatientLogin POST /auth/patient/login
func (h *AuthHandler) PatientLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	p, err := h.store.Patients().GetByUsername(r.Context(), req.Username)
	if err != nil || p.Password != req.Password {
		respond.WriteUnauthorized(w, "Invalid credentials")
		return
	}

	record := fmt.Sprintf("Patient logged in on %s", h.now().Format("2006-01-02 15:04"))
	if err := h.mem.Write(r.Context(), req.Username, record, []string{"login", "activity"}); err != nil {
		h.log.Warn().Err(err).Msg("login memory write failed")
	}

	token := h.tokens.IssuePatient(req.Username)
	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token, "role": auth.RolePatient})
}
