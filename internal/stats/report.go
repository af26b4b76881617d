package stats

import (
	"fmt"
	"strings"
)

const topBrands = 5

// RenderReport formats s as the plain-text run report.
func RenderReport(s Statistics, currency string) string {
	var b strings.Builder

	b.WriteString("===========================================\n")
	fmt.Fprintf(&b, "MARKETEYE CATALOG REPORT - %s\n", s.GeneratedAt.Format("2006-01-02 15:04"))
	b.WriteString("===========================================\n\n")

	if s.Empty() {
		b.WriteString("No products in catalog.\n")
		return b.String()
	}

	b.WriteString("SUMMARY\n")
	fmt.Fprintf(&b, "  Unique products: %d\n", s.TotalProducts)
	fmt.Fprintf(&b, "  Total offers:    %d\n", s.TotalOffers)
	fmt.Fprintf(&b, "  Priced offers:   %d\n\n", s.Price.Count)

	b.WriteString("PRICES\n")
	fmt.Fprintf(&b, "  Average: %.2f %s\n", s.Price.Avg, currency)
	fmt.Fprintf(&b, "  Min:     %.2f %s\n", s.Price.Min, currency)
	fmt.Fprintf(&b, "  Max:     %.2f %s\n\n", s.Price.Max, currency)

	b.WriteString("TOP BRANDS\n")
	for i, c := range s.BrandDistribution {
		if i == topBrands {
			break
		}
		fmt.Fprintf(&b, "  %d. %s: %d\n", i+1, c.Key, c.Count)
	}

	writeDistribution(&b, "SOURCES", s.SourceDistribution)
	writeDistribution(&b, "CONDITIONS", s.ConditionDistribution)
	return b.String()
}

func writeDistribution(b *strings.Builder, title string, counts []Count) {
	fmt.Fprintf(b, "\n%s\n", title)
	for _, c := range counts {
		fmt.Fprintf(b, "  %s: %d\n", c.Key, c.Count)
	}
}
