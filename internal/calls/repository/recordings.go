package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Recording struct {
	ID              uuid.UUID
	CallID          uuid.UUID
	RecordingURL    string
	ArchivedURL     *string
	Transcription   *string
	DurationSeconds *int
	Summary         *string
	InterestLevel   *string
	ActionItems     []string
	CreatedAt       time.Time
}

const recordingColumns = `id, call_id, recording_url, archived_url, transcription,
	duration_seconds, summary, interest_level, action_items, created_at`

func scanRecording(row pgx.Row) (Recording, error) {
	var rec Recording
	err := row.Scan(
		&rec.ID, &rec.CallID, &rec.RecordingURL, &rec.ArchivedURL, &rec.Transcription,
		&rec.DurationSeconds, &rec.Summary, &rec.InterestLevel, &rec.ActionItems, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recording{}, ErrNotFound
	}
	return rec, err
}

type InsertRecordingParams struct {
	CallID          uuid.UUID
	RecordingURL    string
	DurationSeconds *int
	Transcription   *string
	Summary         *string
	InterestLevel   *string
	ActionItems     []string
}

func (r *Repository) InsertRecording(ctx context.Context, params InsertRecordingParams) (Recording, error) {
	// The column is NOT NULL; a nil slice would encode as SQL NULL.
	if params.ActionItems == nil {
		params.ActionItems = []string{}
	}
	return scanRecording(r.pool.QueryRow(ctx, `
		INSERT INTO call_recordings (call_id, recording_url, duration_seconds, transcription, summary, interest_level, action_items)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+recordingColumns,
		params.CallID, params.RecordingURL, params.DurationSeconds,
		params.Transcription, params.Summary, params.InterestLevel, params.ActionItems,
	))
}

// SetArchivedURL records where the audio landed in object storage.
func (r *Repository) SetArchivedURL(ctx context.Context, id uuid.UUID, archivedURL string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_recordings SET archived_url = $2 WHERE id = $1`, id, archivedURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListRecordingsByCall(ctx context.Context, callID uuid.UUID) ([]Recording, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordingColumns+` FROM call_recordings
		WHERE call_id = $1
		ORDER BY created_at ASC`, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recordings := make([]Recording, 0)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}
	return recordings, rows.Err()
}
