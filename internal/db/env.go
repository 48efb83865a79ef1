//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/joho/godotenv"
)

// Environment keys read from a credentials file.
const (
	EnvHost     = "PGHOST"
	EnvPort     = "PGPORT"
	EnvUser     = "PGUSER"
	EnvPassword = "PGPASSWORD"
	EnvDatabase = "PGDATABASE"
	EnvSSLMode  = "PGSSLMODE"
)

// ConnStringFromEnvFile builds a connection URL from the PG* keys of a
// dotenv file. Keys missing from the file fall back to the process
// environment; host, port and user have defaults.
func ConnStringFromEnvFile(path string) (string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return connStringFromVars(vars)
}

func connStringFromVars(vars map[string]string) (string, error) {
	get := func(key, def string) string {
		if v, ok := vars[key]; ok && v != "" {
			return v
		}
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	database := get(EnvDatabase, "")
	if database == "" {
		return "", fmt.Errorf("%s is required", EnvDatabase)
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(get(EnvHost, "localhost"), get(EnvPort, "5432")),
		Path:   "/" + database,
	}
	user := get(EnvUser, "postgres")
	if password := get(EnvPassword, ""); password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	if sslmode := get(EnvSSLMode, ""); sslmode != "" {
		u.RawQuery = url.Values{"sslmode": {sslmode}}.Encode()
	}
	return u.String(), nil
}
