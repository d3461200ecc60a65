package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/events"
)

var (
	_ events.Store  = (*Client)(nil)
	_ events.Reader = (*Client)(nil)
)

func TestConnString(t *testing.T) {
	cfg := config.Default().Storage.Postgres

	assert.Equal(t,
		"host='127.0.0.1' port=5432 user='questbox' dbname='questbox' sslmode=disable",
		connString(cfg, ""))

	cfg.SSLMode = ""
	assert.Equal(t,
		`host='127.0.0.1' port=5432 user='questbox' dbname='questbox' password='it\'s secret' sslmode=disable`,
		connString(cfg, "it's secret"))
}

func TestNullable(t *testing.T) {
	assert.False(t, nullable("").Valid)
	assert.True(t, nullable("x").Valid)
}
