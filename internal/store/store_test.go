package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/internal/stats"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

func newTestStore(t *testing.T) (*HybridStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &HybridStore{redis: rdb, logger: zap.NewNop()}, mr
}

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testProduct(id string, offers ...model.Offer) model.Product {
	return model.Product{
		ProductID:      id,
		Brand:          "Samsung",
		Model:          "S24 ULTRA",
		ProductName:    "Samsung Galaxy S24 Ultra",
		Category:       model.DefaultCategory,
		Specifications: map[string]string{"storage": "256GB"},
		Offers:         offers,
		Metadata: model.Metadata{
			Sources:     []model.Source{model.SourceJumia},
			CreatedAt:   testTime,
			LastUpdated: testTime,
		},
	}
}

func TestSaveCatalog_AndGetProduct(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	p := testProduct("samsung_s24ultra", model.Offer{Source: model.SourceJumia, Price: 13499, Currency: "MAD", URL: "https://www.jumia.ma/s24"})
	if err := store.SaveCatalog(ctx, []model.Product{p, testProduct("apple_iphone13")}); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}

	got, err := store.GetProduct(ctx, "samsung_s24ultra")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected product, got nil")
	}
	if got.ProductName != p.ProductName || len(got.Offers) != 1 || got.Offers[0].Price != 13499 {
		t.Errorf("unexpected product: %+v", got)
	}
	if !got.Metadata.CreatedAt.Equal(testTime) {
		t.Errorf("expected created_at %v, got %v", testTime, got.Metadata.CreatedAt)
	}

	ids, err := store.ListProductIDs(ctx)
	if err != nil {
		t.Fatalf("ListProductIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %v", ids)
	}
}

func TestSaveCatalog_RemovesStaleProducts(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	if err := store.SaveCatalog(ctx, []model.Product{testProduct("a"), testProduct("b")}); err != nil {
		t.Fatalf("first SaveCatalog failed: %v", err)
	}
	if err := store.SaveCatalog(ctx, []model.Product{testProduct("b"), testProduct("c")}); err != nil {
		t.Fatalf("second SaveCatalog failed: %v", err)
	}

	if mr.Exists(productKey("a")) {
		t.Error("expected stale product a to be removed")
	}
	members, err := mr.Members(productIndexKey)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if len(members) != 2 || members[0] != "b" || members[1] != "c" {
		t.Errorf("expected index [b c], got %v", members)
	}
}

func TestGetProduct_Missing(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	got, err := store.GetProduct(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil product, got %+v", got)
	}
}

func TestStats_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	if st, err := store.GetStats(ctx); err != nil || st != nil {
		t.Fatalf("expected no stats yet, got %+v, %v", st, err)
	}

	in := stats.Compute([]model.Product{
		testProduct("a", model.Offer{Source: model.SourceAvito, Price: 100, Condition: model.ConditionUsed}),
	}, testTime)
	if err := store.SaveStats(ctx, in); err != nil {
		t.Fatalf("SaveStats failed: %v", err)
	}

	out, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if out == nil || out.TotalProducts != 1 || out.Price.Max != 100 {
		t.Errorf("unexpected stats: %+v", out)
	}
}

func TestSetAndGetJSON(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	val := map[string]string{"run_id": "abc123"}
	if err := store.SetJSON(ctx, "catalog:last_run", val, time.Minute); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var got map[string]string
	if err := store.GetJSON(ctx, "catalog:last_run", &got); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got["run_id"] != "abc123" {
		t.Errorf("expected run_id=abc123, got %s", got["run_id"])
	}
}
