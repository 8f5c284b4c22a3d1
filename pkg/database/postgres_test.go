package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gettogather-api/pkg/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.abcd.supabase.co",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss/w:rd#1",
		Name:     "postgres",
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.abcd.supabase.co:5432", u.Host)
	assert.Equal(t, "/postgres", u.Path)
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/w:rd#1", password)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, applicationName, u.Query().Get("application_name"))
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))
}

func TestDSNKeepsExplicitSSLMode(t *testing.T) {
	u, err := url.Parse(DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Name: "db", SSLMode: "disable"}))
	require.NoError(t, err)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}
