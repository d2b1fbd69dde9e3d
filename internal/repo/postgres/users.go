package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/autocabinet/internal/domain/user"
	"github.com/geocoder89/autocabinet/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, login, email, password, name, phone, address, created_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) GetByLogin(ctx context.Context, login string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_login", `SELECT `+userColumns+` FROM users WHERE login = $1`, login)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UsersRepo) Exists(ctx context.Context, login, email string) (loginExists bool, emailExists bool, err error) {
	err = r.observe("users.exists", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT
				EXISTS(SELECT 1 FROM users WHERE login = $1),
				EXISTS(SELECT 1 FROM users WHERE email = $2)`,
			login, email,
		).Scan(&loginExists, &emailExists)
	})
	return
}

func (r *UsersRepo) Create(ctx context.Context, p user.CreateParams) (user.User, error) {
	var u user.User

	err := r.observe("users.create", func() error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO users (login, email, password, name, phone, address)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+userColumns,
			p.Login, p.Email, p.PasswordHash, p.Name, p.Phone, p.Address,
		).Scan(&u.ID, &u.Login, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Address, &u.CreatedAt)
	})

	if err != nil {
		return user.User{}, mapUniqueViolation(err)
	}

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id int64, p user.UpdateParams) (user.User, error) {
	if p.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var sets []string
	var args []interface{}

	argsPosition := 1

	add := func(column string, v *string) {
		if v == nil {
			return
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, *v)
		argsPosition++
	}

	add("login", p.Login)
	add("email", p.Email)
	add("name", p.Name)
	add("phone", p.Phone)
	add("address", p.Address)

	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argsPosition, userColumns)

	var u user.User
	err := r.observe("users.update", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(
			&u.ID, &u.Login, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Address, &u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, mapUniqueViolation(err)
	}

	return u, nil
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, arg interface{}) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx, query, arg).Scan(
			&u.ID,
			&u.Login,
			&u.Email,
			&u.PasswordHash,
			&u.Name,
			&u.Phone,
			&u.Address,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_login_key":
			return user.ErrLoginTaken
		case "users_email_key":
			return user.ErrEmailTaken
		}
	}
	return err
}
