package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/GintGld/clip-editor/internal/models"
	"github.com/GintGld/clip-editor/internal/storage"
)

// SaveSource saves descriptor of uploaded source
// owned by the session. A session owns one source,
// the same source may back several sessions.
func (s *Storage) SaveSource(ctx context.Context, sessionID string, src models.Source) error {
	const op = "storage.sqlite.SaveSource"

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO sources(session_id, id, path, name, duration, width, height, fps, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		sessionID, src.ID, src.Path, src.Name, src.Duration,
		src.Width, src.Height, src.FPS, src.CreatedAt.UnixMilli(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return fmt.Errorf("%s: %w", op, storage.ErrSourceExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SourceBySession returns source of the session.
func (s *Storage) SourceBySession(ctx context.Context, sessionID string) (models.Source, error) {
	const op = "storage.sqlite.SourceBySession"

	src, err := s.sourceSubSelect(s.db, ctx, "session_id", sessionID)
	if err != nil {
		return models.Source{}, fmt.Errorf("%s: %w", op, err)
	}

	return src, nil
}

// AllSources returns all registered sources
// with their sessions, oldest first.
func (s *Storage) AllSources(ctx context.Context) ([]models.SessionSource, error) {
	const op = "storage.sqlite.AllSources"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT session_id, id, path, name, duration, width, height, fps, created_at
		FROM sources ORDER BY created_at, session_id
	`)
	if err != nil {
		return []models.SessionSource{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return []models.SessionSource{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	sources := make([]models.SessionSource, 0)
	for rows.Next() {
		var (
			sessionID string
			src       models.Source
			createdMs int64
		)
		if err := rows.Scan(&sessionID, &src.ID, &src.Path, &src.Name, &src.Duration, &src.Width, &src.Height, &src.FPS, &createdMs); err != nil {
			return sources, fmt.Errorf("%s: %w", op, err)
		}
		src.CreatedAt = time.UnixMilli(createdMs)

		sources = append(sources, models.SessionSource{SessionID: sessionID, Source: src})
	}

	if err := rows.Err(); err != nil {
		return sources, fmt.Errorf("%s: %w", op, err)
	}

	return sources, nil
}

// DeleteSessionSource deletes source of the session.
func (s *Storage) DeleteSessionSource(ctx context.Context, sessionID string) error {
	const op = "storage.sqlite.DeleteSessionSource"

	stmt, err := s.db.PrepareContext(ctx, "DELETE FROM sources WHERE session_id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affectedRows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affectedRows == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrSourceNotFound)
	}

	return nil
}

// sourceSubSelect selects one source by given column.
// column must never come from user input.
func (s *Storage) sourceSubSelect(tx statementBuilder, ctx context.Context, column, value string) (models.Source, error) {
	const op = "sourceSubSelect"

	stmt, err := tx.PrepareContext(ctx, `
		SELECT id, path, name, duration, width, height, fps, created_at
		FROM sources WHERE `+column+` = ?
	`)
	if err != nil {
		return models.Source{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	src, err := scanSource(stmt.QueryRowContext(ctx, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Source{}, storage.ErrSourceNotFound
		}

		return models.Source{}, fmt.Errorf("%s: %w", op, err)
	}

	return src, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (models.Source, error) {
	var (
		src       models.Source
		createdMs int64
	)

	if err := row.Scan(&src.ID, &src.Path, &src.Name, &src.Duration, &src.Width, &src.Height, &src.FPS, &createdMs); err != nil {
		return models.Source{}, err
	}
	src.CreatedAt = time.UnixMilli(createdMs)

	return src, nil
}
