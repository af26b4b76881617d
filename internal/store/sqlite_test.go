package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSnapshotWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	w := NewSnapshotWriter(path, nil)

	products := []model.Product{
		testProduct("samsung_s24ultra",
			model.Offer{Source: model.SourceJumia, Price: 13499, Currency: "MAD", Condition: model.ConditionNew, URL: "u1"},
			model.Offer{Source: model.SourceAvito, Price: 7800, Currency: "MAD", Condition: model.ConditionUsed, URL: "u2"}),
		testProduct("apple_iphone13",
			model.Offer{Source: model.SourceAvito, Price: 4500, Currency: "MAD", Condition: model.ConditionGood, URL: "u3"}),
	}
	require.NoError(t, w.Write(context.Background(), products))

	assert.Equal(t, 2, countRows(t, path, "products"))
	assert.Equal(t, 3, countRows(t, path, "offers"))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var price float64
	require.NoError(t, db.QueryRow(`SELECT price FROM offers WHERE url = 'u2'`).Scan(&price))
	assert.Equal(t, 7800.0, price)
}

func TestSnapshotWriter_ReplacesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	w := NewSnapshotWriter(path, nil)

	require.NoError(t, w.Write(context.Background(), []model.Product{testProduct("a"), testProduct("b")}))
	require.NoError(t, w.Write(context.Background(), []model.Product{
		testProduct("c", model.Offer{Source: model.SourceJumia, Price: 1, URL: "u"}),
	}))

	assert.Equal(t, 1, countRows(t, path, "products"))
	assert.Equal(t, 1, countRows(t, path, "offers"))
}
