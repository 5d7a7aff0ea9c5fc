package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/memorycare/memorycare-backend/internal/api/recovery"
	"github.com/memorycare/memorycare-backend/internal/api/respond"
	"github.com/memorycare/memorycare-backend/internal/auth"
	"github.com/memorycare/memorycare-backend/internal/chat"
	"github.com/memorycare/memorycare-backend/internal/store"
)

// Memory is the slice of the memory gateway the HTTP layer uses.
// Satisfied by *memstore.Gateway.
type Memory interface {
	Write(ctx context.Context, ownerID, text string, tags []string) error
	WriteProfile(ctx context.Context, ownerID, key, value, category string) bool
	StoreDual(ctx context.Context, ownerID, episodicText string, profile map[string]string, tags []string) error
	Health(ctx context.Context) (json.RawMessage, error)
}

// Deps carries everything the router needs; assembled once at startup.
type Deps struct {
	Store          store.Store
	Memory         Memory
	Chat           *chat.Service
	Tokens         auth.Tokens
	DoctorUsername string
	DoctorPassword string
	Log            zerolog.Logger
}

// NewRouter wires all API routes. Tokens travel as a query parameter,
// which the web client depends on.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	authHandler := NewAuthHandler(d.Store, d.Memory, d.Tokens, d.DoctorUsername, d.DoctorPassword, d.Log)
	doctorHandler := NewDoctorHandler(d.Store, d.Memory, d.Log)
	patientHandler := NewPatientHandler(d.Store, d.Memory, d.Log)
	chatHandler := NewChatHandler(d.Chat, d.Memory)
	healthHandler := NewHealthHandler(d.Store, d.Memory)

	router.HandleFunc("/health", healthHandler.Check).Methods("GET")

	router.HandleFunc("/auth/doctor/login", authHandler.DoctorLogin).Methods("POST")
	router.HandleFunc("/auth/patient/signup", authHandler.PatientSignup).Methods("POST")
	router.HandleFunc("/auth/patient/login", authHandler.PatientLogin).Methods("POST")

	doctor := requireRole(d.Tokens, auth.RoleDoctor)
	router.HandleFunc("/doctor/patients", doctor(doctorHandler.ListPatients)).Methods("GET")
	router.HandleFunc("/doctor/medications", doctor(doctorHandler.AddMedication)).Methods("POST")
	router.HandleFunc("/doctor/patient-medications", doctor(doctorHandler.PatientMedications)).Methods("GET")
	router.HandleFunc("/doctor/goals", doctor(doctorHandler.AddGoal)).Methods("POST")
	router.HandleFunc("/doctor/patient-goals", doctor(doctorHandler.PatientGoals)).Methods("GET")

	patient := requireRole(d.Tokens, auth.RolePatient)
	router.HandleFunc("/patient/goals", patient(patientHandler.ListGoals)).Methods("GET")
	router.HandleFunc("/patient/medications", patient(patientHandler.ListMedications)).Methods("GET")
	router.HandleFunc("/patient/medications/log", patient(patientHandler.LogMedication)).Methods("POST")

	router.HandleFunc("/remember", chatHandler.Remember).Methods("POST")
	router.HandleFunc("/chat", chatHandler.Chat).Methods("POST")

	return router
}

type identityKey struct{}

// requireRole resolves the token query parameter and rejects requests
// whose principal does not hold the wanted role.
func requireRole(tokens auth.Tokens, role string) func(http.HandlerFunc) http.HandlerFunc {
	msg := "Doctor auth required"
	if role == auth.RolePatient {
		msg = "Patient auth required"
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id, ok := tokens.Resolve(r.URL.Query().Get("token"))
			if !ok || id.Role != role {
				respond.WriteUnauthorized(w, msg)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
		}
	}
}

func identityFrom(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(identityKey{}).(auth.Identity)
	return id
}
