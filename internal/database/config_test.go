package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      DatabaseConfig
		expected string
	}{
		{
			name:     "postgres",
			cfg:      DatabaseConfig{Driver: "postgres", Host: "db", Port: "5432", User: "app", Password: "pw", Name: "users", SSLMode: "disable"},
			expected: "host=db user=app password=pw dbname=users port=5432 sslmode=disable",
		},
		{
			name:     "mysql",
			cfg:      DatabaseConfig{Driver: "mysql", Host: "db", Port: "3306", User: "app", Password: "pw", Name: "users"},
			expected: "app:pw@tcp(db:3306)/users?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name:     "driver name is case-insensitive",
			cfg:      DatabaseConfig{Driver: "MySQL", Host: "db", Port: "3306", User: "app", Password: "pw", Name: "users"},
			expected: "app:pw@tcp(db:3306)/users?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name:     "sqlite defaults to path",
			cfg:      DatabaseConfig{Path: "users.sqlite"},
			expected: "users.sqlite",
		},
		{
			name:     "unknown driver",
			cfg:      DatabaseConfig{Driver: "oracle"},
			expected: "",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.DSN())
		})
	}
}

func TestStringMasksPassword(t *testing.T) {
	cfg := DatabaseConfig{Driver: "postgres", Password: "hunter2"}
	assert.NotContains(t, cfg.String(), "hunter2")
}
