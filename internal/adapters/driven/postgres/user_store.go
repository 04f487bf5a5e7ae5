package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.UserStore   = (*UserStore)(nil)
	_ driven.AgencyStore = (*AgencyStore)(nil)
)

const userColumns = `id, email, password_hash, name, role, agency_id, active, created_at, updated_at, last_login_at`

// UserStore implements driven.UserStore using PostgreSQL
type UserStore struct {
	db *DB
}

// NewUserStore creates a new UserStore
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Save creates or updates a user. A duplicate email is ErrAlreadyExists.
func (s *UserStore) Save(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			agency_id = EXCLUDED.agency_id,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at,
			last_login_at = EXCLUDED.last_login_at
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Role),
		NullString(user.AgencyID),
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
		NullTime(user.LastLoginAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves a user by ID
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by email
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// List retrieves users matching the filter, ordered by name
func (s *UserStore) List(ctx context.Context, filter driven.UserFilter) ([]*domain.User, error) {
	var (
		where []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.AgencyID != "" {
		args = append(args, filter.AgencyID)
		where = append(where, fmt.Sprintf("agency_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "active = TRUE")
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Count returns the total number of users
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// Delete deletes a user. Sessions go with it via ON DELETE CASCADE.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// UpdateLastLogin stamps the last login time
func (s *UserStore) UpdateLastLogin(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user        domain.User
		agencyID    sql.NullString
		lastLoginAt sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&agencyID,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.AgencyID = agencyID.String
	user.LastLoginAt = TimePtr(lastLoginAt)
	return &user, nil
}

// AgencyStore implements driven.AgencyStore using PostgreSQL
type AgencyStore struct {
	db *DB
}

// NewAgencyStore creates a new AgencyStore
func NewAgencyStore(db *DB) *AgencyStore {
	return &AgencyStore{db: db}
}

// Save creates or updates an agency
func (s *AgencyStore) Save(ctx context.Context, agency *domain.Agency) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agencies (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
	`, agency.ID, agency.Name, agency.CreatedAt, agency.UpdatedAt)
	return err
}

// Get retrieves an agency by ID
func (s *AgencyStore) Get(ctx context.Context, id string) (*domain.Agency, error) {
	var agency domain.Agency
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM agencies WHERE id = $1`, id,
	).Scan(&agency.ID, &agency.Name, &agency.CreatedAt, &agency.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &agency, nil
}

// List returns every agency ordered by name
func (s *AgencyStore) List(ctx context.Context) ([]*domain.Agency, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM agencies ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agencies := make([]*domain.Agency, 0)
	for rows.Next() {
		var agency domain.Agency
		if err := rows.Scan(&agency.ID, &agency.Name, &agency.CreatedAt, &agency.UpdatedAt); err != nil {
			return nil, err
		}
		agencies = append(agencies, &agency)
	}
	return agencies, rows.Err()
}
