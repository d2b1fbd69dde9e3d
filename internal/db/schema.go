package db

const sqliteUsersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	login TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL,
	name TEXT,
	phone TEXT,
	address TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const postgresUsersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	login TEXT NOT NULL,
	email TEXT NOT NULL,
	password TEXT NOT NULL,
	name TEXT,
	phone TEXT,
	address TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT users_login_key UNIQUE (login),
	CONSTRAINT users_email_key UNIQUE (email)
)`
