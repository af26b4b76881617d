package catalog

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Checker-Finance/marketeye/internal/stats"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// Snapshot is one published catalog. It is never modified after Set.
type Snapshot struct {
	RunID    uuid.UUID
	BuiltAt  time.Time
	Products []model.Product
	Stats    stats.Statistics
	Report   string

	index map[string]int
}

// NewSnapshot indexes products by id.
func NewSnapshot(runID uuid.UUID, builtAt time.Time, products []model.Product, st stats.Statistics, report string) *Snapshot {
	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p.ProductID] = i
	}
	return &Snapshot{
		RunID:    runID,
		BuiltAt:  builtAt,
		Products: products,
		Stats:    st,
		Report:   report,
		index:    index,
	}
}

// Filter narrows a product listing. Empty fields match everything.
type Filter struct {
	Brand  string
	Source model.Source
}

func (f Filter) match(p model.Product) bool {
	if f.Brand != "" && !strings.EqualFold(p.Brand, f.Brand) {
		return false
	}
	if f.Source != "" && !p.HasOfferFrom(f.Source) {
		return false
	}
	return true
}

// Holder keeps the latest catalog in memory for readers while refreshes
// replace it.
type Holder struct {
	mu      sync.RWMutex
	current *Snapshot
}

func NewHolder() *Holder { return &Holder{} }

func (h *Holder) Set(s *Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = s
}

// Current returns the latest snapshot, or nil before the first refresh.
func (h *Holder) Current() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Product returns a copy of the product with the given id.
func (h *Holder) Product(id string) (model.Product, bool) {
	s := h.Current()
	if s == nil {
		return model.Product{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return model.Product{}, false
	}
	return s.Products[i].Clone(), true
}

// Products returns copies of the products matching f, in catalog order.
func (h *Holder) Products(f Filter) []model.Product {
	s := h.Current()
	if s == nil {
		return []model.Product{}
	}
	out := make([]model.Product, 0, len(s.Products))
	for _, p := range s.Products {
		if f.match(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}
