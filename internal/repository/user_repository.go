package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/praveenrathi4/complain-app/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByPhone matches either the phone or the WhatsApp number.
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	ListByRoles(ctx context.Context, roles []domain.Role) ([]domain.User, error)
}

const userColumns = `id, name, email, phone, whatsapp_number, password_hash, role, business_name, address,
               is_email_verified, is_active, last_login, created_at, updated_at`

type userPgRepository struct {
	pool PgxPool
}

// NewUserPgRepository returns a Postgres-backed implementation.
func NewUserPgRepository(pool PgxPool) UserRepository {
	return &userPgRepository{pool: pool}
}

func (r *userPgRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, name, email, phone, whatsapp_number, password_hash, role, business_name, address,
            is_email_verified, is_active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.WhatsAppNumber,
		user.PasswordHash,
		user.Role,
		user.BusinessName,
		user.Address,
		user.IsEmailVerified,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *userPgRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, phone=$2, whatsapp_number=$3, business_name=$4, address=$5,
            is_email_verified=$6, is_active=$7, role=$8, updated_at=$9
        WHERE id=$10`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Phone,
		user.WhatsAppNumber,
		user.BusinessName,
		user.Address,
		user.IsEmailVerified,
		user.IsActive,
		user.Role,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userPgRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userPgRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userPgRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone=$1 OR whatsapp_number=$1
        ORDER BY created_at LIMIT 1`
	return r.fetchSingle(ctx, query, phone)
}

func (r *userPgRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET password_hash=$1, updated_at=$2 WHERE id=$3`, passwordHash, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userPgRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login=$1 WHERE id=$2`, at, id)
	return err
}

func (r *userPgRepository) ListByRoles(ctx context.Context, roles []domain.Role) ([]domain.User, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = ANY($1) ORDER BY name`, names)
	if err != nil {
		return nil, err
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		user, err := scanUser(row)
		if err != nil {
			return domain.User{}, err
		}
		return *user, nil
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return users, nil
}

func (r *userPgRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.WhatsAppNumber,
		&user.PasswordHash,
		&user.Role,
		&user.BusinessName,
		&user.Address,
		&user.IsEmailVerified,
		&user.IsActive,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
