package cart

import (
	"testing"
	"time"

	"github.com/sofiaduarte/threadline-backend/internal/catalog"
)

func mergeItem(id, productID, size string, qty int) LineItem {
	return LineItem{
		ID:       id,
		Product:  catalog.Product{ID: productID, PriceCents: 1000},
		Quantity: qty,
		Size:     size,
		AddedAt:  time.Unix(1700000000, 0),
	}
}

func TestMergeSumsMatchingTuples(t *testing.T) {
	t.Parallel()

	guest := []LineItem{mergeItem("tmp_a", "p1", "M", 2)}
	server := []LineItem{mergeItem("li_1", "p1", "M", 3)}

	merged := Merge(guest, server, func(LineItem) int { return 10 })
	if len(merged) != 1 {
		t.Fatalf("merged len = %d, want 1", len(merged))
	}
	if merged[0].Quantity != 5 {
		t.Fatalf("merged quantity = %d, want 5", merged[0].Quantity)
	}
	if merged[0].ID != "li_1" {
		t.Fatalf("merged id = %q, want server id li_1", merged[0].ID)
	}
}

func TestMergeClampsToLiveStock(t *testing.T) {
	t.Parallel()

	guest := []LineItem{mergeItem("tmp_a", "p1", "M", 4)}
	server := []LineItem{mergeItem("li_1", "p1", "M", 4)}

	merged := Merge(guest, server, func(LineItem) int { return 6 })
	if merged[0].Quantity != 6 {
		t.Fatalf("clamped quantity = %d, want 6", merged[0].Quantity)
	}
}

func TestMergeDropsItemsClampedToZero(t *testing.T) {
	t.Parallel()

	guest := []LineItem{
		mergeItem("tmp_a", "p1", "M", 2),
		mergeItem("tmp_b", "p2", "L", 1),
	}

	merged := Merge(guest, nil, func(item LineItem) int {
		if item.Product.ID == "p1" {
			return 0
		}
		return 5
	})
	if len(merged) != 1 {
		t.Fatalf("merged len = %d, want 1", len(merged))
	}
	if merged[0].Product.ID != "p2" {
		t.Fatalf("survivor = %q, want p2", merged[0].Product.ID)
	}
}

func TestMergeKeepsDistinctTuplesSeparate(t *testing.T) {
	t.Parallel()

	guest := []LineItem{mergeItem("tmp_a", "p1", "S", 1)}
	server := []LineItem{mergeItem("li_1", "p1", "M", 1)}

	merged := Merge(guest, server, nil)
	if len(merged) != 2 {
		t.Fatalf("merged len = %d, want 2", len(merged))
	}
}

func TestDiffAgainstServerClassifiesMutations(t *testing.T) {
	t.Parallel()

	server := []LineItem{
		mergeItem("li_1", "p1", "M", 3), // quantity grows
		mergeItem("li_2", "p2", "S", 1), // dropped by clamp
		mergeItem("li_3", "p3", "L", 2), // unchanged
	}
	merged := []LineItem{
		mergeItem("li_1", "p1", "M", 5),
		mergeItem("li_3", "p3", "L", 2),
		mergeItem("tmp_a", "p4", "M", 1), // guest-only tuple
	}

	diff := DiffAgainstServer(merged, server)
	if len(diff.Add) != 1 || diff.Add[0].Product.ID != "p4" {
		t.Fatalf("diff.Add = %+v, want one p4 item", diff.Add)
	}
	if len(diff.Update) != 1 || diff.Update[0].ID != "li_1" || diff.Update[0].Quantity != 5 {
		t.Fatalf("diff.Update = %+v, want li_1 at quantity 5", diff.Update)
	}
	if len(diff.Remove) != 1 || diff.Remove[0].ID != "li_2" {
		t.Fatalf("diff.Remove = %+v, want li_2", diff.Remove)
	}
}
