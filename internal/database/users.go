package database

import "context"

const createUser = `
INSERT INTO users (username, hashed_password, role)
VALUES ($1, $2, $3)
RETURNING id, username, hashed_password, role, created_at
`

type CreateUserParams struct {
	Username       string
	HashedPassword string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Username, arg.HashedPassword, arg.Role)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByUsername = `
SELECT id, username, hashed_password, role, created_at
FROM users
WHERE username = $1
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByUsername, username)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, username, hashed_password, role, created_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &u.Role, &u.CreatedAt)
	return u, err
}
