package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Checker-Finance/marketeye/internal/stats"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

const (
	FinalFileName = "marketeye_final.json"
	CSVFileName   = "marketeye_clean.csv"
	StatsFileName = "statistics.json"
)

// WriteJSONBackup writes products as an indented JSON array twice: a
// timestamped marketeye_backup_YYYYMMDD_HHMMSS.json and marketeye_final.json,
// which always holds the latest catalog. It returns the backup path.
func WriteJSONBackup(dir string, products []model.Product, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	if products == nil {
		products = []model.Product{}
	}
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal backup: %w", err)
	}

	backup := filepath.Join(dir, "marketeye_backup_"+now.UTC().Format("20060102_150405")+".json")
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FinalFileName), data, 0o644); err != nil {
		return "", fmt.Errorf("write final catalog: %w", err)
	}
	return backup, nil
}

var csvHeader = []string{
	"product_id", "brand", "model", "product_name", "source", "price", "currency",
	"condition", "rating", "url", "seller_type", "storage", "ram",
}

// WriteCSV flattens the catalog to one row per offer in marketeye_clean.csv.
func WriteCSV(dir string, products []model.Product) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, CSVFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, p := range products {
		for _, o := range p.Offers {
			row := []string{
				p.ProductID, p.Brand, p.Model, p.ProductName,
				string(o.Source),
				strconv.FormatFloat(o.Price, 'f', 2, 64),
				o.Currency,
				string(o.Condition),
				orNA(o.Rating > 0, strconv.FormatFloat(o.Rating, 'f', -1, 64)),
				o.URL,
				orNA(o.SellerType != "", o.SellerType),
				orNA(p.Specifications["storage"] != "", p.Specifications["storage"]),
				orNA(p.Specifications["ram"] != "", p.Specifications["ram"]),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return path, nil
}

func orNA(ok bool, v string) string {
	if ok {
		return v
	}
	return "N/A"
}

// WriteReport stores the text report as report_YYYYMMDD_HHMMSS.txt and the
// statistics as statistics.json. It returns the report path.
func WriteReport(dir, report string, st stats.Statistics, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, "report_"+now.UTC().Format("20060102_150405")+".txt")
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal statistics: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, StatsFileName), data, 0o644); err != nil {
		return "", fmt.Errorf("write statistics: %w", err)
	}
	return path, nil
}
