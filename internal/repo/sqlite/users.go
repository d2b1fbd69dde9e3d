package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/autocabinet/internal/domain/user"
	"github.com/geocoder89/autocabinet/internal/observability"
	"github.com/mattn/go-sqlite3"
)

const userColumns = `id, login, email, password, name, phone, address, created_at`

type UsersRepo struct {
	db   *sql.DB
	prom *observability.Prom
}

func NewUsersRepo(db *sql.DB, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UsersRepo) GetByLogin(ctx context.Context, login string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_login", `SELECT `+userColumns+` FROM users WHERE login = ?`, login)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UsersRepo) Exists(ctx context.Context, login, email string) (loginExists bool, emailExists bool, err error) {
	err = r.observe("users.exists", func() error {
		return r.db.QueryRowContext(ctx, `
			SELECT
				EXISTS(SELECT 1 FROM users WHERE login = ?),
				EXISTS(SELECT 1 FROM users WHERE email = ?)`,
			login, email,
		).Scan(&loginExists, &emailExists)
	})
	return
}

func (r *UsersRepo) Create(ctx context.Context, p user.CreateParams) (user.User, error) {
	var id int64

	err := r.observe("users.create", func() error {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO users (login, email, password, name, phone, address, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.Login, p.Email, p.PasswordHash, p.Name, p.Phone, p.Address, time.Now().UTC(),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return user.User{}, mapUniqueViolation(err)
	}

	return r.GetByID(ctx, id)
}

func (r *UsersRepo) Update(ctx context.Context, id int64, p user.UpdateParams) (user.User, error) {
	if p.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var sets []string
	var args []interface{}

	add := func(column string, v *string) {
		if v == nil {
			return
		}
		sets = append(sets, column+" = ?")
		args = append(args, *v)
	}

	add("login", p.Login)
	add("email", p.Email)
	add("name", p.Name)
	add("phone", p.Phone)
	add("address", p.Address)

	args = append(args, id)

	var affected int64
	err := r.observe("users.update", func() error {
		res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return user.User{}, mapUniqueViolation(err)
	}

	if affected == 0 {
		return user.User{}, user.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, arg interface{}) (user.User, error) {
	var (
		u                    user.User
		name, phone, address sql.NullString
	)

	err := r.observe(op, func() error {
		return r.db.QueryRowContext(ctx, query, arg).Scan(
			&u.ID,
			&u.Login,
			&u.Email,
			&u.PasswordHash,
			&name,
			&phone,
			&address,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	u.Name = nullable(name)
	u.Phone = nullable(phone)
	u.Address = nullable(address)

	return u, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// sqlite reports "UNIQUE constraint failed: users.login" for the violated column.
func mapUniqueViolation(err error) error {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := liteErr.Error()
		switch {
		case strings.Contains(msg, "users.login"):
			return user.ErrLoginTaken
		case strings.Contains(msg, "users.email"):
			return user.ErrEmailTaken
		}
	}
	return err
}
