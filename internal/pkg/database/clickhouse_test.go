package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClickHouseDBClose(t *testing.T) {
	t.Run("handles nil connection", func(t *testing.T) {
		db := &ClickHouseDB{Conn: nil}
		assert.NoError(t, db.Close())
	})
}

func TestRedisDBClose(t *testing.T) {
	db := &RedisDB{Client: nil}
	assert.NoError(t, db.Close())
}

func TestOperationNameClickHouse(t *testing.T) {
	assert.Equal(t, "insert", operationName("INSERT INTO steps (id, execution_id) VALUES"))
	assert.Equal(t, "select", operationName("SELECT * FROM executions FINAL WHERE id = ?"))
}
