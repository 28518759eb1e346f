package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/user"
)

type userRow struct {
	ID           int            `db:"id"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	Name         string         `db:"name"`
	LastName     string         `db:"last_name"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r userRow) unpack() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		Name:         r.Name,
		LastName:     r.LastName,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func unpackUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.unpack())
	}
	return users
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	query := `SELECT username, email FROM "user" WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]int64, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, int64(u.ID))
		}
		query += ` AND id != ALL($3)`
		args = append(args, pq.Int64Array(ids))
	}

	var rows []userRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
		if r.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	query := `INSERT INTO "user" (username, email, name, last_name, roles, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := repo.db.QueryRow(
		query,
		usr.Username, usr.Email, usr.Name, usr.LastName,
		pq.StringArray(usr.Roles), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	var rows []userRow
	if err := repo.db.Select(&rows, `SELECT * FROM "user" ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return unpackUsers(rows), nil
}

func (repo *userRepository) GetUserByID(id int) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, "finding user by ID")
	}
	return row.unpack(), nil
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, `SELECT * FROM "user" WHERE username = $1`, username); err != nil {
		return user.User{}, trapNoRowsErr(err, "finding user by username")
	}
	return row.unpack(), nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	var row userRow
	query := `SELECT * FROM "user" WHERE username = $1 OR email = $1`
	if err := repo.db.Get(&row, query, username); err != nil {
		return user.User{}, trapNoRowsErr(err, "finding user by username or email")
	}
	return row.unpack(), nil
}

func (repo *userRepository) UpdateUser(usr user.User) (user.User, error) {
	query := `UPDATE "user" SET username = $1, email = $2, name = $3, last_name = $4,
		roles = $5, password_hash = $6, updated_at = $7 WHERE id = $8`
	res, err := repo.db.Exec(
		query,
		usr.Username, usr.Email, usr.Name, usr.LastName,
		pq.StringArray(usr.Roles), usr.PasswordHash, usr.UpdatedAt, usr.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ids ...int) error {
	idArr := make([]int64, 0, len(ids))
	for _, id := range ids {
		idArr = append(idArr, int64(id))
	}
	if _, err := repo.db.Exec(`DELETE FROM "user" WHERE id = ANY($1)`, pq.Int64Array(idArr)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
