package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"linkly-api/internal/entities"
)

// URLRepository defines the interface for short link storage
type URLRepository interface {
	FindByLongURL(ctx context.Context, longURL string) (*entities.ShortLink, error)
	FindByCode(ctx context.Context, code string) (*entities.ShortLink, error)
	// Create inserts link. When a link with the same long URL already exists
	// it is returned with created == false and nothing is written.
	Create(ctx context.Context, link *entities.ShortLink) (stored *entities.ShortLink, created bool, err error)
	// IncrementClicks adds one click to the link with code and returns its long URL.
	IncrementClicks(ctx context.Context, code string) (string, error)
	ListByOwner(ctx context.Context, userID string) ([]*entities.ShortLink, error)
}

type urlRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewURLRepository creates a new PostgreSQL-backed URL repository
func NewURLRepository(db *sql.DB, timeout time.Duration) URLRepository {
	return &urlRepository{db: db, timeout: timeout}
}

const linkColumns = `id, url_code, long_url, short_url, clicks, created_at, user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*entities.ShortLink, error) {
	var link entities.ShortLink
	err := row.Scan(
		&link.ID,
		&link.Code,
		&link.LongURL,
		&link.ShortURL,
		&link.Clicks,
		&link.CreatedAt,
		&link.Owner,
	)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// FindByLongURL finds a link by its exact long URL
func (r *urlRepository) FindByLongURL(ctx context.Context, longURL string) (*entities.ShortLink, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	// The md5 predicate lets the planner use the unique digest index.
	query := `
		SELECT ` + linkColumns + `
		FROM urls
		WHERE md5(long_url) = md5($1) AND long_url = $1
	`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, longURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find URL by long URL: %w", err)
	}

	return link, nil
}

// FindByCode finds a link by its short code
func (r *urlRepository) FindByCode(ctx context.Context, code string) (*entities.ShortLink, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + linkColumns + `
		FROM urls
		WHERE url_code = $1
	`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find URL by code: %w", err)
	}

	return link, nil
}

// Create inserts a new link, deferring to an existing row with the same long URL
func (r *urlRepository) Create(ctx context.Context, link *entities.ShortLink) (*entities.ShortLink, bool, error) {
	insertCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO urls (url_code, long_url, short_url, user_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING ` + linkColumns

	stored, err := scanLink(r.db.QueryRowContext(insertCtx, query, link.Code, link.LongURL, link.ShortURL, link.Owner))
	if err == nil {
		return stored, true, nil
	}
	if link.Owner != nil && (hasPQCode(err, pqForeignKeyViolation) || hasPQCode(err, pqInvalidTextRepr)) {
		return nil, false, ErrUnknownOwner
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create URL: %w", err)
	}

	// Nothing inserted: either the long URL or the code already exists.
	existing, err := r.FindByLongURL(ctx, link.LongURL)
	if errors.Is(err, ErrNotFound) {
		return nil, false, ErrCodeConflict
	}
	if err != nil {
		return nil, false, err
	}

	return existing, false, nil
}

// IncrementClicks increments the click count in a single statement
func (r *urlRepository) IncrementClicks(ctx context.Context, code string) (string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE urls
		SET clicks = clicks + 1
		WHERE url_code = $1
		RETURNING long_url
	`

	var longURL string
	err := r.db.QueryRowContext(ctx, query, code).Scan(&longURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to increment click count: %w", err)
	}

	return longURL, nil
}

// ListByOwner retrieves all links of a user, oldest first
func (r *urlRepository) ListByOwner(ctx context.Context, userID string) ([]*entities.ShortLink, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + linkColumns + `
		FROM urls
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	links := make([]*entities.ShortLink, 0)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		// A user id that is not a UUID cannot own anything.
		if hasPQCode(err, pqInvalidTextRepr) {
			return links, nil
		}
		return nil, fmt.Errorf("failed to get URLs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan URL: %w", err)
		}
		links = append(links, link)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating URLs: %w", err)
	}

	return links, nil
}
