package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-job-feed-watcher/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS postings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link TEXT NOT NULL,
		text TEXT NOT NULL,
		status TEXT DEFAULT NULL
	)`

// SQLiteStore keeps postings in a single local database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file at path. The ingestion
// loop and the callback handler write concurrently, so writes wait on the
// file lock instead of failing with SQLITE_BUSY.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on any error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, link, text string) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO postings (link, text, status) VALUES (?, ?, NULL)`, link, text)
		if err != nil {
			return fmt.Errorf("failed to save posting: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read posting id: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Posting, error) {
	var p *models.Posting
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = scanPosting(tx.QueryRowContext(ctx, `SELECT id, link, text, status FROM postings WHERE id = ?`, id))
		return err
	})
	return p, err
}

func (s *SQLiteStore) SetAccepted(ctx context.Context, id int64) (bool, error) {
	outcome, err := s.Accept(ctx, id)
	if err != nil {
		return false, err
	}
	return outcome != models.OutcomeNotFound, nil
}

func (s *SQLiteStore) Accept(ctx context.Context, id int64) (models.ReviewOutcome, error) {
	var outcome models.ReviewOutcome
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPosting(tx.QueryRowContext(ctx, `SELECT id, link, text, status FROM postings WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if p == nil {
			outcome = models.OutcomeNotFound
			return nil
		}

		if _, err := tx.ExecContext(ctx, `UPDATE postings SET status = ? WHERE id = ?`, string(models.StatusAccepted), id); err != nil {
			return fmt.Errorf("failed to update posting status: %w", err)
		}
		outcome = models.OutcomeApplied
		if p.Status == models.StatusAccepted {
			outcome = models.OutcomeAlreadyApplied
		}
		return nil
	})
	return outcome, err
}

func (s *SQLiteStore) Reject(ctx context.Context, id int64) (models.ReviewOutcome, error) {
	var outcome models.ReviewOutcome
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPosting(tx.QueryRowContext(ctx, `SELECT id, link, text, status FROM postings WHERE id = ?`, id))
		if err != nil {
			return err
		}
		switch {
		case p == nil:
			outcome = models.OutcomeNotFound
			return nil
		case p.Status == models.StatusAccepted:
			outcome = models.OutcomeAlreadyApplied
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete posting: %w", err)
		}
		outcome = models.OutcomeApplied
		return nil
	})
	return outcome, err
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete posting: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]models.Posting, error) {
	var postings []models.Posting
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, link, text, status FROM postings ORDER BY id`)
		if err != nil {
			return fmt.Errorf("query postings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPosting(rows)
			if err != nil {
				return err
			}
			postings = append(postings, *p)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate postings: %w", err)
		}
		return nil
	})
	return postings, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPosting returns nil, nil when the row does not exist.
func scanPosting(row rowScanner) (*models.Posting, error) {
	var (
		p      models.Posting
		status sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Link, &p.Text, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan posting: %w", err)
	}
	p.Status = models.Status(status.String)
	return &p, nil
}
