package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

const maxLineSize = 8 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadResult is the outcome of reading one raw file.
type LoadResult struct {
	Listings     []model.RawListing
	SkippedLines int
}

// LoadFile reads a raw source file. Content starting with '[' is one JSON
// array; anything else is NDJSON, where malformed lines are skipped with a
// warning. An empty file yields no listings. Only an unreadable file or a
// broken JSON array is an error.
func LoadFile(ctx context.Context, path string, logger *zap.Logger) (*LoadResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return &LoadResult{}, nil
	}
	if data[0] == '[' {
		return loadArray(path, data, logger)
	}
	return loadLines(ctx, path, data, logger)
}

func loadArray(path string, data []byte, logger *zap.Logger) (*LoadResult, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	res := &LoadResult{Listings: make([]model.RawListing, 0, len(items))}
	for i, item := range items {
		raw, err := decodeListing(item)
		if err != nil {
			res.SkippedLines++
			logger.Warn("source.loader.bad_element",
				zap.String("file", path),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		res.Listings = append(res.Listings, raw)
	}
	return res, nil
}

func loadLines(ctx context.Context, path string, data []byte, logger *zap.Logger) (*LoadResult, error) {
	res := &LoadResult{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		raw, err := decodeListing(line)
		if err != nil {
			res.SkippedLines++
			logger.Warn("source.loader.bad_line",
				zap.String("file", path),
				zap.Int("line", lineNo),
				zap.Error(err))
			continue
		}
		res.Listings = append(res.Listings, raw)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return res, nil
}

func decodeListing(data []byte) (model.RawListing, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw model.RawListing
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("not a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	return raw, nil
}
