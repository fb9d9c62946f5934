package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/dbx"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
)

// PostgresStore keeps namespaces and key records in two tables. Write-once
// semantics rest on the primary key of key_records.
type PostgresStore struct {
	db *sql.DB
	q  dbx.DBTX
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) CreateNamespace(ctx context.Context, user string) error {
	if err := validateUser(user); err != nil {
		return err
	}

	query := `INSERT INTO namespaces (email) VALUES ($1) ON CONFLICT (email) DO NOTHING`

	res, err := s.q.ExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return conflictIfUnchanged(res, "namespace "+user)
}

func (s *PostgresStore) NamespaceExists(ctx context.Context, user string) (bool, error) {
	if err := validateUser(user); err != nil {
		return false, err
	}

	query := `SELECT EXISTS (SELECT 1 FROM namespaces WHERE email = $1)`

	var exists bool
	if err := s.q.QueryRowContext(ctx, query, user).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) StoreOnce(ctx context.Context, scope models.Scope, kid string, payload []byte) error {
	if err := validate(scope, kid); err != nil {
		return err
	}

	query := `
		INSERT INTO key_records (kind, user_email, device_id, document_id, recipient, kid, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (kind, user_email, device_id, document_id, recipient, kid) DO NOTHING`

	res, err := s.q.ExecContext(ctx, query, scopeArgs(scope, kid, payload)...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return conflictIfUnchanged(res, string(scope.Kind)+"/"+kid)
}

func (s *PostgresStore) StoreReplacing(ctx context.Context, scope models.Scope, kid string, payload []byte) error {
	if err := validateReplacing(scope, kid); err != nil {
		return err
	}

	query := `
		INSERT INTO key_records (kind, user_email, device_id, document_id, recipient, kid, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (kind, user_email, device_id, document_id, recipient, kid)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

	if _, err := s.q.ExecContext(ctx, query, scopeArgs(scope, kid, payload)...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, scope models.Scope, kid string) ([]byte, bool, error) {
	if err := validate(scope, kid); err != nil {
		return nil, false, err
	}

	query := `
		SELECT payload FROM key_records
		WHERE kind = $1 AND user_email = $2 AND device_id = $3 AND document_id = $4 AND recipient = $5 AND kid = $6`

	var payload []byte
	err := s.q.QueryRowContext(ctx, query, scopeArgs(scope, kid)...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	return payload, true, nil
}

func (s *PostgresStore) List(ctx context.Context, scope models.Scope) ([]Record, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	query := `
		SELECT kid, payload FROM key_records
		WHERE kind = $1 AND user_email = $2 AND device_id = $3 AND document_id = $4 AND recipient = $5
		ORDER BY kid`

	rows, err := s.q.QueryContext(ctx, query, scopeArgs(scope, "")[:5]...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Kid, &r.Payload); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scopeArgs(scope models.Scope, kid string, payload ...[]byte) []any {
	args := []any{string(scope.Kind), scope.User, scope.Device, scope.Document, scope.Recipient, kid}
	for _, p := range payload {
		args = append(args, p)
	}
	return args
}

func conflictIfUnchanged(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrConflict)
	}
	return nil
}
