// Package config loads environment-backed settings. Command-line behavior is
// all pflag in main; only the database credentials come from the environment,
// so that they stay out of process listings.
package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/viper"
)

// DB holds Postgres connection settings, read from DB_* environment
// variables. Name, User, and Password are required; the rest default.
type DB struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

func LoadDB() (DB, error) {
	v := viper.New()
	v.SetEnvPrefix("db")
	v.AutomaticEnv()
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 5432)
	v.SetDefault("sslmode", "disable")

	db := DB{
		Host:     v.GetString("host"),
		Port:     v.GetInt("port"),
		Name:     v.GetString("name"),
		User:     v.GetString("user"),
		Password: v.GetString("password"),
		SSLMode:  v.GetString("sslmode"),
	}

	if db.Name == "" || db.User == "" || db.Password == "" {
		return DB{}, errors.New("database environment variables (DB_NAME, DB_USER, DB_PASSWORD) are not set")
	}

	return db, nil
}

// DSN renders the settings as a postgres:// connection URL.
func (db DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Name,
		RawQuery: "sslmode=" + url.QueryEscape(db.SSLMode),
	}
	return u.String()
}
