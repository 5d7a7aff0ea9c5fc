package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/memorycare/memorycare-backend/internal/model"
	"github.com/memorycare/memorycare-backend/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New constructs a Postgres-backed store over database/sql.
func New(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Patients() store.Patients             { return &patients{db: s.db} }
func (s *pgStore) Medications() store.Medications       { return &medications{db: s.db} }
func (s *pgStore) MedicationLogs() store.MedicationLogs { return &medicationLogs{db: s.db} }
func (s *pgStore) Goals() store.Goals                   { return &goals{db: s.db} }

func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Bootstrap creates the schema if it does not exist yet.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patients (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			full_name TEXT NOT NULL,
			family_info TEXT,
			emergency_contact_name TEXT,
			emergency_contact_phone TEXT,
			hobbies TEXT,
			creation_time TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS medications (
			id BIGSERIAL PRIMARY KEY,
			patient_id BIGINT NOT NULL REFERENCES patients(id),
			name TEXT NOT NULL,
			times_per_day INT NOT NULL DEFAULT 1,
			specific_times TEXT,
			instructions TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ,
			creation_time TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_medications_patient ON medications(patient_id)`,
		`CREATE TABLE IF NOT EXISTS medication_logs (
			id BIGSERIAL PRIMARY KEY,
			medication_id BIGINT NOT NULL REFERENCES medications(id),
			date TIMESTAMPTZ NOT NULL,
			time_taken TEXT,
			taken BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_medication_logs_medication ON medication_logs(medication_id)`,
		`CREATE TABLE IF NOT EXISTS goals (
			id BIGSERIAL PRIMARY KEY,
			patient_id BIGINT NOT NULL REFERENCES patients(id),
			text TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_patient ON goals(patient_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres bootstrap: %w", err)
		}
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// --- Patients ---

type patients struct{ db *sql.DB }

func (p *patients) Create(ctx context.Context, in *model.Patient) (*model.Patient, error) {
	now := time.Now().UTC()
	var id int64
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO patients (username, password, full_name, family_info, emergency_contact_name, emergency_contact_phone, hobbies, creation_time)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		in.Username, in.Password, in.FullName, in.FamilyInfo, in.EmergencyContactName, in.EmergencyContactPhone, in.Hobbies, now).Scan(&id)
	if err != nil {
		return nil, err
	}
	out := *in
	out.ID = id
	out.CreationTime = now
	return &out, nil
}

func (p *patients) GetByUsername(ctx context.Context, username string) (*model.Patient, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, username, password, full_name, family_info, emergency_contact_name, emergency_contact_phone, hobbies, creation_time
		 FROM patients WHERE username = $1`, username)
	return scanPatient(row)
}

func (p *patients) List(ctx context.Context) ([]*model.Patient, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, username, password, full_name, family_info, emergency_contact_name, emergency_contact_phone, hobbies, creation_time
		 FROM patients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Patient
	for rows.Next() {
		pt, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

func scanPatient(r rowScanner) (*model.Patient, error) {
	var pt model.Patient
	var family, ecName, ecPhone, hobbies sql.NullString
	err := r.Scan(&pt.ID, &pt.Username, &pt.Password, &pt.FullName, &family, &ecName, &ecPhone, &hobbies, &pt.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	pt.FamilyInfo = nullStr(family)
	pt.EmergencyContactName = nullStr(ecName)
	pt.EmergencyContactPhone = nullStr(ecPhone)
	pt.Hobbies = nullStr(hobbies)
	return &pt, nil
}

// --- Medications ---

type medications struct{ db *sql.DB }

const medicationCols = `id, patient_id, name, times_per_day, specific_times, instructions, active, start_date, end_date, creation_time`

func (m *medications) Create(ctx context.Context, in *model.Medication) (*model.Medication, error) {
	now := time.Now().UTC()
	start := in.StartDate
	if start.IsZero() {
		start = now
	}
	var id int64
	err := m.db.QueryRowContext(ctx,
		`INSERT INTO medications (patient_id, name, times_per_day, specific_times, instructions, active, start_date, end_date, creation_time)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		in.PatientID, in.Name, in.TimesPerDay, in.SpecificTimes, in.Instructions, in.Active, start, in.EndDate, now).Scan(&id)
	if err != nil {
		return nil, err
	}
	out := *in
	out.ID = id
	out.StartDate = start
	out.CreationTime = now
	return &out, nil
}

func (m *medications) ListActive(ctx context.Context, patientID int64) ([]*model.Medication, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+medicationCols+` FROM medications WHERE patient_id = $1 AND active ORDER BY id`, patientID)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}

func (m *medications) List(ctx context.Context, patientID int64) ([]*model.Medication, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+medicationCols+` FROM medications WHERE patient_id = $1 ORDER BY id`, patientID)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}

func (m *medications) GetActiveByName(ctx context.Context, patientID int64, name string) (*model.Medication, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+medicationCols+` FROM medications WHERE patient_id = $1 AND name = $2 AND active`, patientID, name)
	return scanMedication(row)
}

func (m *medications) DeactivateExpired(ctx context.Context, patientID int64, asOf time.Time) (int64, error) {
	res, err := m.db.ExecContext(ctx,
		`UPDATE medications SET active = FALSE WHERE patient_id = $1 AND active AND end_date IS NOT NULL AND end_date < $2`,
		patientID, asOf)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectMedications(rows *sql.Rows) ([]*model.Medication, error) {
	defer func() { _ = rows.Close() }()
	var out []*model.Medication
	for rows.Next() {
		md, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, md)
	}
	return out, rows.Err()
}

func scanMedication(r rowScanner) (*model.Medication, error) {
	var md model.Medication
	var specific, instructions sql.NullString
	var end sql.NullTime
	err := r.Scan(&md.ID, &md.PatientID, &md.Name, &md.TimesPerDay, &specific, &instructions, &md.Active, &md.StartDate, &end, &md.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	md.SpecificTimes = nullStr(specific)
	md.Instructions = nullStr(instructions)
	md.EndDate = nullTime(end)
	return &md, nil
}

// --- Medication logs ---

type medicationLogs struct{ db *sql.DB }

func (l *medicationLogs) Create(ctx context.Context, in *model.MedicationLog) (*model.MedicationLog, error) {
	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	var id int64
	err := l.db.QueryRowContext(ctx,
		`INSERT INTO medication_logs (medication_id, date, time_taken, taken) VALUES ($1,$2,$3,$4) RETURNING id`,
		in.MedicationID, date, in.TimeTaken, in.Taken).Scan(&id)
	if err != nil {
		return nil, err
	}
	out := *in
	out.ID = id
	out.Date = date
	return &out, nil
}

func (l *medicationLogs) List(ctx context.Context, medicationID int64) ([]*model.MedicationLog, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, medication_id, date, time_taken, taken FROM medication_logs WHERE medication_id = $1 ORDER BY date`, medicationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.MedicationLog
	for rows.Next() {
		var lg model.MedicationLog
		var taken sql.NullString
		if err := rows.Scan(&lg.ID, &lg.MedicationID, &lg.Date, &taken, &lg.Taken); err != nil {
			return nil, err
		}
		lg.TimeTaken = nullStr(taken)
		out = append(out, &lg)
	}
	return out, rows.Err()
}

func (l *medicationLogs) CountSince(ctx context.Context, medicationID int64, since time.Time) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM medication_logs WHERE medication_id = $1 AND date >= $2`, medicationID, since).Scan(&n)
	return n, err
}

// --- Goals ---

type goals struct{ db *sql.DB }

func (g *goals) Create(ctx context.Context, in *model.Goal) (*model.Goal, error) {
	now := time.Now().UTC()
	var id int64
	err := g.db.QueryRowContext(ctx,
		`INSERT INTO goals (patient_id, text, completed, created_at, completed_at) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		in.PatientID, in.Text, in.Completed, now, in.CompletedAt).Scan(&id)
	if err != nil {
		return nil, err
	}
	out := *in
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

func (g *goals) ListOpen(ctx context.Context, patientID int64) ([]*model.Goal, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, patient_id, text, completed, created_at, completed_at FROM goals WHERE patient_id = $1 AND NOT completed ORDER BY id`, patientID)
	if err != nil {
		return nil, err
	}
	return collectGoals(rows)
}

func (g *goals) List(ctx context.Context, patientID int64) ([]*model.Goal, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, patient_id, text, completed, created_at, completed_at FROM goals WHERE patient_id = $1 ORDER BY id`, patientID)
	if err != nil {
		return nil, err
	}
	return collectGoals(rows)
}

func (g *goals) Complete(ctx context.Context, goalID int64, at time.Time) error {
	res, err := g.db.ExecContext(ctx,
		`UPDATE goals SET completed = TRUE, completed_at = $1 WHERE id = $2 AND NOT completed`, at, goalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func collectGoals(rows *sql.Rows) ([]*model.Goal, error) {
	defer func() { _ = rows.Close() }()
	var out []*model.Goal
	for rows.Next() {
		var gl model.Goal
		var completedAt sql.NullTime
		if err := rows.Scan(&gl.ID, &gl.PatientID, &gl.Text, &gl.Completed, &gl.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		gl.CompletedAt = nullTime(completedAt)
		out = append(out, &gl)
	}
	return out, rows.Err()
}
