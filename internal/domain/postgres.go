package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository persists domain records in the platform database.
// The schema is owned by the control plane; the gateway only reads and
// writes rows in the domains table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository over an existing pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Healthcheck returns a readiness probe function for the database.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

const domainColumns = `name, project_id, track_id, is_custom, certificate_status,
	certificate_issued_at, certificate_expires_at, last_certificate_error,
	created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, d *Domain) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO domains (`+domainColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.Name, d.ProjectID, d.TrackID, d.IsCustom, string(d.CertificateStatus),
		nullTime(d.CertificateIssuedAt), nullTime(d.CertificateExpiresAt),
		d.LastCertificateError, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: %s", ErrDomainExists, d.Name)
		}
		return fmt.Errorf("insert domain: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, name string) (*Domain, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+domainColumns+`
		FROM domains WHERE name = $1`, name)

	d, err := scanDomain(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, name)
		}
		return nil, fmt.Errorf("select domain: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) Update(ctx context.Context, d *Domain) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE domains SET
			project_id = $2,
			track_id = $3,
			is_custom = $4,
			certificate_status = $5,
			certificate_issued_at = $6,
			certificate_expires_at = $7,
			last_certificate_error = $8,
			updated_at = $9
		WHERE name = $1`,
		d.Name, d.ProjectID, d.TrackID, d.IsCustom, string(d.CertificateStatus),
		nullTime(d.CertificateIssuedAt), nullTime(d.CertificateExpiresAt),
		d.LastCertificateError, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update domain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDomainNotFound, d.Name)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM domains WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDomainNotFound, name)
	}
	return nil
}

func (r *PostgresRepository) ListRenewable(ctx context.Context, expiringBefore time.Time) ([]*Domain, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+domainColumns+`
		FROM domains
		WHERE (certificate_status = $1 AND certificate_expires_at < $2)
		   OR certificate_status = ANY($3)
		ORDER BY certificate_expires_at NULLS FIRST`,
		string(StatusValid), expiringBefore,
		[]string{string(StatusFailed), string(StatusExpired)},
	)
	if err != nil {
		return nil, fmt.Errorf("list renewable domains: %w", err)
	}
	defer rows.Close()
	return collectDomains(rows)
}

func (r *PostgresRepository) ListStuck(ctx context.Context, updatedBefore time.Time) ([]*Domain, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+domainColumns+`
		FROM domains
		WHERE certificate_status = ANY($1) AND updated_at < $2`,
		[]string{string(StatusValidating), string(StatusIssuing)}, updatedBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("list stuck domains: %w", err)
	}
	defer rows.Close()
	return collectDomains(rows)
}

func collectDomains(rows pgx.Rows) ([]*Domain, error) {
	var out []*Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return out, nil
}

func scanDomain(row pgx.Row) (*Domain, error) {
	var (
		d         Domain
		status    string
		issuedAt  *time.Time
		expiresAt *time.Time
	)
	if err := row.Scan(
		&d.Name, &d.ProjectID, &d.TrackID, &d.IsCustom, &status,
		&issuedAt, &expiresAt, &d.LastCertificateError,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.CertificateStatus = Status(status)
	if issuedAt != nil {
		d.CertificateIssuedAt = *issuedAt
	}
	if expiresAt != nil {
		d.CertificateExpiresAt = *expiresAt
	}
	return &d, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
