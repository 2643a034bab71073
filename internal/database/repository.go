package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-job-feed-watcher/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS postings (
		id BIGSERIAL PRIMARY KEY,
		link TEXT NOT NULL,
		text TEXT NOT NULL,
		status TEXT DEFAULT NULL
	)`

// PostgresStore keeps postings in a shared Postgres database.
type PostgresStore struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// Transaction-mode poolers (PgBouncer, Supabase) do not keep prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &PostgresStore{db: pool}, nil
}

func (r *PostgresStore) Close() error {
	if r.db != nil {
		r.db.Close()
	}
	return nil
}

func (r *PostgresStore) Init(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *PostgresStore) Create(ctx context.Context, link, text string) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `INSERT INTO postings (link, text, status) VALUES ($1, $2, NULL) RETURNING id`, link, text).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save posting: %w", err)
	}
	return id, nil
}

func (r *PostgresStore) Get(ctx context.Context, id int64) (*models.Posting, error) {
	var p *models.Posting
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		p, err = getPosting(ctx, tx, id, false)
		return err
	})
	return p, err
}

func (r *PostgresStore) SetAccepted(ctx context.Context, id int64) (bool, error) {
	outcome, err := r.Accept(ctx, id)
	if err != nil {
		return false, err
	}
	return outcome != models.OutcomeNotFound, nil
}

func (r *PostgresStore) Accept(ctx context.Context, id int64) (models.ReviewOutcome, error) {
	var outcome models.ReviewOutcome
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		p, err := getPosting(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if p == nil {
			outcome = models.OutcomeNotFound
			return nil
		}

		if _, err := tx.Exec(ctx, `UPDATE postings SET status = $1 WHERE id = $2`, string(models.StatusAccepted), id); err != nil {
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

func (r *PostgresStore) Reject(ctx context.Context, id int64) (models.ReviewOutcome, error) {
	var outcome models.ReviewOutcome
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		p, err := getPosting(ctx, tx, id, true)
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

		if _, err := tx.Exec(ctx, `DELETE FROM postings WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete posting: %w", err)
		}
		outcome = models.OutcomeApplied
		return nil
	})
	return outcome, err
}

func (r *PostgresStore) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM postings WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete posting: %w", err)
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

func (r *PostgresStore) ListAll(ctx context.Context) ([]models.Posting, error) {
	var postings []models.Posting
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, link, text, status FROM postings ORDER BY id`)
		if err != nil {
			return fmt.Errorf("query postings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				p      models.Posting
				status *string
			)
			if err := rows.Scan(&p.ID, &p.Link, &p.Text, &status); err != nil {
				return fmt.Errorf("scan posting: %w", err)
			}
			if status != nil {
				p.Status = models.Status(*status)
			}
			postings = append(postings, p)
		}
		return rows.Err()
	})
	return postings, err
}

func getPosting(ctx context.Context, tx pgx.Tx, id int64, forUpdate bool) (*models.Posting, error) {
	query := `SELECT id, link, text, status FROM postings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		p      models.Posting
		status *string
	)
	err := tx.QueryRow(ctx, query, id).Scan(&p.ID, &p.Link, &p.Text, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get posting by ID: %w", err)
	}
	if status != nil {
		p.Status = models.Status(*status)
	}
	return &p, nil
}
