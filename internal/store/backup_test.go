package store

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/marketeye/internal/stats"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

func TestWriteJSONBackup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "processed")
	products := []model.Product{testProduct("samsung_s24ultra",
		model.Offer{Source: model.SourceJumia, Price: 13499, Currency: "MAD", URL: "u1"})}

	path, err := WriteJSONBackup(dir, products, testTime)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "marketeye_backup_20250301_120000.json"), path)

	for _, name := range []string{filepath.Base(path), FinalFileName} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)

		var got []model.Product
		require.NoError(t, json.Unmarshal(data, &got))
		require.Len(t, got, 1)
		assert.Equal(t, "samsung_s24ultra", got[0].ProductID)
	}
}

func TestWriteJSONBackup_EmptyCatalogIsArray(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteJSONBackup(dir, nil, testTime)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, FinalFileName))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	products := []model.Product{testProduct("samsung_s24ultra",
		model.Offer{Source: model.SourceJumia, Price: 13499, Currency: "MAD", Condition: model.ConditionNew, URL: "u1", Rating: 4.5},
		model.Offer{Source: model.SourceAvito, Price: 7800, Currency: "MAD", Condition: model.ConditionUsed, URL: "u2", SellerType: "PRIVATE"},
	)}

	path, err := WriteCSV(dir, products)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"samsung_s24ultra", "Samsung", "S24 ULTRA", "Samsung Galaxy S24 Ultra",
		"Jumia", "13499.00", "MAD", "new", "4.5", "u1", "N/A", "256GB", "N/A"}, rows[1])
	assert.Equal(t, "PRIVATE", rows[2][10])
	assert.Equal(t, "N/A", rows[2][8])
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	st := stats.Compute([]model.Product{testProduct("a",
		model.Offer{Source: model.SourceAvito, Price: 100, Condition: model.ConditionUsed})}, testTime)

	path, err := WriteReport(dir, "report body", st, testTime)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_20250301_120000.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report body", string(data))

	data, err = os.ReadFile(filepath.Join(dir, StatsFileName))
	require.NoError(t, err)
	var got stats.Statistics
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got.TotalOffers)
}
