package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/memorycare/memorycare-backend/internal/model"
	"github.com/memorycare/memorycare-backend/internal/store"
)

// New constructs a SQLite-backed store over an existing connection.
func New(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Patients() store.Patients             { return &patients{db: s.db} }
func (s *sqliteStore) Medications() store.Medications       { return &medications{db: s.db} }
func (s *sqliteStore) MedicationLogs() store.MedicationLogs { return &medicationLogs{db: s.db} }
func (s *sqliteStore) Goals() store.Goals                   { return &goals{db: s.db} }

func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Patients ---

type patients struct{ db *sql.DB }

func (p *patients) Create(ctx context.Context, in *model.Patient) (*model.Patient, error) {
	now := time.Now().UTC()
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO Patients (Username, Password, FullName, FamilyInfo, EmergencyContactName, EmergencyContactPhone, Hobbies, CreationTime)
		 VALUES (?,?,?,?,?,?,?,?)`,
		in.Username, in.Password, in.FullName, in.FamilyInfo, in.EmergencyContactName, in.EmergencyContactPhone, in.Hobbies, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
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
		`SELECT Id, Username, Password, FullName, FamilyInfo, EmergencyContactName, EmergencyContactPhone, Hobbies, CreationTime
		 FROM Patients WHERE Username = ?`, username)
	return scanPatient(row)
}

func (p *patients) List(ctx context.Context) ([]*model.Patient, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT Id, Username, Password, FullName, FamilyInfo, EmergencyContactName, EmergencyContactPhone, Hobbies, CreationTime
		 FROM Patients ORDER BY Id`)
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

type rowScanner interface{ Scan(dest ...any) error }

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

// --- Medications ---

type medications struct{ db *sql.DB }

func (m *medications) Create(ctx context.Context, in *model.Medication) (*model.Medication, error) {
	now := time.Now().UTC()
	start := in.StartDate
	if start.IsZero() {
		start = now
	}
	res, err := m.db.ExecContext(ctx,
		`INSERT INTO Medications (PatientId, Name, TimesPerDay, SpecificTimes, Instructions, Active, StartDate, EndDate, CreationTime)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		in.PatientID, in.Name, in.TimesPerDay, in.SpecificTimes, in.Instructions, in.Active, start, in.EndDate, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *in
	out.ID = id
	out.StartDate = start
	out.CreationTime = now
	return &out, nil
}

const medicationCols = `Id, PatientId, Name, TimesPerDay, SpecificTimes, Instructions, Active, StartDate, EndDate, CreationTime`

func (m *medications) ListActive(ctx context.Context, patientID int64) ([]*model.Medication, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+medicationCols+` FROM Medications WHERE PatientId = ? AND Active = 1 ORDER BY Id`, patientID)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}

func (m *medications) List(ctx context.Context, patientID int64) ([]*model.Medication, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+medicationCols+` FROM Medications WHERE PatientId = ? ORDER BY Id`, patientID)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}

func (m *medications) GetActiveByName(ctx context.Context, patientID int64, name string) (*model.Medication, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+medicationCols+` FROM Medications WHERE PatientId = ? AND Name = ? AND Active = 1`, patientID, name)
	return scanMedication(row)
}

func (m *medications) DeactivateExpired(ctx context.Context, patientID int64, asOf time.Time) (int64, error) {
	res, err := m.db.ExecContext(ctx,
		`UPDATE Medications SET Active = 0 WHERE PatientId = ? AND Active = 1 AND EndDate IS NOT NULL AND EndDate < ?`,
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
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO MedicationLogs (MedicationId, Date, TimeTaken, Taken) VALUES (?,?,?,?)`,
		in.MedicationID, date, in.TimeTaken, in.Taken)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
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
		`SELECT Id, MedicationId, Date, TimeTaken, Taken FROM MedicationLogs WHERE MedicationId = ? ORDER BY Date`, medicationID)
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
		`SELECT COUNT(*) FROM MedicationLogs WHERE MedicationId = ? AND Date >= ?`, medicationID, since).Scan(&n)
	return n, err
}

// --- Goals ---

type goals struct{ db *sql.DB }

func (g *goals) Create(ctx context.Context, in *model.Goal) (*model.Goal, error) {
	now := time.Now().UTC()
	res, err := g.db.ExecContext(ctx,
		`INSERT INTO Goals (PatientId, Text, Completed, CreatedAt, CompletedAt) VALUES (?,?,?,?,?)`,
		in.PatientID, in.Text, in.Completed, now, in.CompletedAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
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
		`SELECT Id, PatientId, Text, Completed, CreatedAt, CompletedAt FROM Goals WHERE PatientId = ? AND Completed = 0 ORDER BY Id`, patientID)
	if err != nil {
		return nil, err
	}
	return collectGoals(rows)
}

func (g *goals) List(ctx context.Context, patientID int64) ([]*model.Goal, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT Id, PatientId, Text, Completed, CreatedAt, CompletedAt FROM Goals WHERE PatientId = ? ORDER BY Id`, patientID)
	if err != nil {
		return nil, err
	}
	return collectGoals(rows)
}

func (g *goals) Complete(ctx context.Context, goalID int64, at time.Time) error {
	res, err := g.db.ExecContext(ctx,
		`UPDATE Goals SET Completed = 1, CompletedAt = ? WHERE Id = ? AND Completed = 0`, at, goalID)
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
