package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)

// Fixed-width so that created_at sorts lexically
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no record matches the requested ID
var ErrNotFound = errors.New("transcription not found")

// TranscriptionRecord is a stored transcription result
type TranscriptionRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Filename  string    `json:"filename"`
	transcription.Result
}

// TranscriptionStorage handles storage of transcription results
type TranscriptionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTranscriptionStorage creates the storage and its schema
func NewTranscriptionStorage(db *sql.DB, log *logger.Logger) (*TranscriptionStorage, error) {
	storage := &TranscriptionStorage{
		db:     db,
		logger: log.Named("sqlite-tx"),
	}

	if err := storage.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize transcription storage: %w", err)
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *TranscriptionStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcriptions (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			filename TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT NOT NULL,
			transcript TEXT NOT NULL,
			language_code TEXT,
			confidence REAL,
			error_kind TEXT,
			segments_json TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transcriptions table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_created_at ON transcriptions(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_status ON transcriptions(status)`)
	if err != nil {
		return fmt.Errorf("failed to create status index: %w", err)
	}

	return nil
}

// StoreResult stores a transcription record
func (s *TranscriptionStorage) StoreResult(record *TranscriptionRecord) error {
	segments := record.Segments
	if segments == nil {
		segments = []transcription.Segment{}
	}
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("failed to marshal segments: %w", err)
	}

	var lang sql.NullString
	if record.LanguageCode != nil {
		lang = sql.NullString{String: *record.LanguageCode, Valid: true}
	}
	var conf sql.NullFloat64
	if record.Confidence != nil {
		conf = sql.NullFloat64{Float64: *record.Confidence, Valid: true}
	}

	_, err = s.db.Exec(
		`INSERT INTO transcriptions
		(id, created_at, filename, status, message, transcript, language_code, confidence, error_kind, segments_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.CreatedAt.UTC().Format(timestampLayout),
		record.Filename,
		record.Status,
		record.Message,
		record.Transcript,
		lang,
		conf,
		record.ErrorKind,
		string(segmentsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transcription: %w", err)
	}

	s.logger.Debug("Stored transcription", String("id", record.ID), String("status", record.Status))
	return nil
}

const selectColumns = `SELECT id, created_at, filename, status, message, transcript, language_code, confidence, error_kind, segments_json
	FROM transcriptions`

// GetResults returns stored results, newest first
func (s *TranscriptionStorage) GetResults(limit, offset int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions: %w", err)
	}
	defer rows.Close()

	records := []*TranscriptionRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcriptions: %w", err)
	}

	return records, nil
}

// GetResult returns a single record by ID
func (s *TranscriptionStorage) GetResult(id string) (*TranscriptionRecord, error) {
	record, err := scanRecord(s.db.QueryRow(selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return record, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*TranscriptionRecord, error) {
	var record TranscriptionRecord
	var createdAt, segmentsJSON string
	var lang, errorKind sql.NullString
	var conf sql.NullFloat64

	if err := row.Scan(
		&record.ID,
		&createdAt,
		&record.Filename,
		&record.Status,
		&record.Message,
		&record.Transcript,
		&lang,
		&conf,
		&errorKind,
		&segmentsJSON,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transcription: %w", err)
	}

	var err error
	record.CreatedAt, err = time.Parse(timestampLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	// Handle nullable fields
	if lang.Valid {
		record.LanguageCode = &lang.String
	}
	if conf.Valid {
		record.Confidence = &conf.Float64
	}
	record.ErrorKind = errorKind.String

	if err := json.Unmarshal([]byte(segmentsJSON), &record.Segments); err != nil {
		return nil, fmt.Errorf("failed to parse segments: %w", err)
	}

	return &record, nil
}
