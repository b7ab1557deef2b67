package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snippetbin/internal/apperror"
	"github.com/sakif/snippetbin/internal/model"
	"github.com/sakif/snippetbin/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X, so a
// missing method shows up here instead of at some distant call site.
var _ repository.SnippetRepository = (*DB)(nil)

// snippetColumns is shared by every SELECT so scanSnippet always sees the
// same column order. The LEFT JOIN keeps anonymous snippets (user_id NULL).
const snippetColumns = `
	s.id, s.name, s.code, s.public, s.user_id, COALESCE(u.username, ''),
	s.created_at, s.updated_at`

const snippetFrom = `
	FROM snippets s
	LEFT JOIN users u ON u.id = s.user_id`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row rowScanner, s *model.Snippet) error {
	return row.Scan(
		&s.ID,
		&s.Name,
		&s.Code,
		&s.Public,
		&s.UserID, // **string: NULL leaves it nil
		&s.OwnerName,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

// Create inserts a new snippet into the database.
//
// The snippet is modified in place: after Create returns, the caller's struct
// carries the generated ID (an xid: 20 chars, URL-safe, time-sortable) and
// timestamps.
//
// PARAMETERIZED QUERIES (the ? placeholders):
// NEVER build SQL strings with fmt.Sprintf or string concatenation of user
// input. The driver binds ? arguments safely.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()

	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, name, code, public, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.Name,
		snippet.Code,
		boolInt(snippet.Public),
		nullString(snippet.UserID),
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID retrieves a single snippet by its ID.
//
// sql.ErrNoRows is translated into apperror.NotFound so the layers above
// never see a database-specific error for the ordinary "no such snippet" case.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var snippet model.Snippet

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+snippetFrom+` WHERE s.id = ?`,
		id,
	)
	if err := scanSnippet(row, &snippet); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return &snippet, nil
}

// where turns the filter half of ListOptions into a WHERE clause.
// Only fixed fragments are concatenated; values always travel as arguments.
func where(opts repository.ListOptions) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if opts.PublicOnly {
		conds = append(conds, "s.public = 1")
	}
	if opts.OwnerID != "" {
		conds = append(conds, "s.user_id = ?")
		args = append(args, opts.OwnerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List retrieves snippets matching opts, newest first.
//
// LIMIT/OFFSET pagination: limit defaults to 20 and is capped at 100 so no
// caller can pull the whole table in one request. The id tiebreak keeps the
// order stable for snippets created within the same clock tick.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	clause, args := where(opts)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+snippetFrom+clause+`
		 ORDER BY s.created_at DESC, s.id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	// CRITICAL: always close rows when done, or the connection leaks.
	defer rows.Close()

	snippets := make([]model.Snippet, 0, limit)
	for rows.Next() {
		var s model.Snippet
		if err := scanSnippet(rows, &s); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}

// Count returns how many snippets match the filter half of opts.
// Limit and Offset are ignored.
func (db *DB) Count(ctx context.Context, opts repository.ListOptions) (int, error) {
	clause, args := where(opts)

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snippets s`+clause,
		args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting snippets: %w", err)
	}
	return n, nil
}

// Update overwrites name, code and public flag of an existing snippet.
//
// id, user_id and created_at are immutable. RowsAffected() == 0 means the
// WHERE clause matched nothing, i.e. the snippet doesn't exist.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET name = ?, code = ?, public = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Name,
		snippet.Code,
		boolInt(snippet.Public),
		snippet.UpdatedAt,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	return nil
}

// Delete removes a snippet from the database by its ID.
//
// Same pattern as Update: check RowsAffected to detect "not found".
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	return nil
}
