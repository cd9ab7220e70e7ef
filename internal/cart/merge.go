package cart

import "sort"

// StockFunc resolves the live purchasable stock for a merged line item.
type StockFunc func(item LineItem) int

// Merge folds a guest cart into a server cart after login. Items are keyed
// by their product/size/color tuple; quantities for matching tuples are
// summed and clamped to live stock. Items whose clamped quantity reaches
// zero are dropped. Server line-item ids win where both sides carry the
// tuple, so merged items stay addressable for follow-up mutations.
func Merge(guestItems, serverItems []LineItem, stockFor StockFunc) []LineItem {
	byTuple := make(map[Tuple]LineItem, len(serverItems)+len(guestItems))
	order := make([]Tuple, 0, len(serverItems)+len(guestItems))

	for _, item := range serverItems {
		tuple := item.Tuple()
		if _, seen := byTuple[tuple]; !seen {
			order = append(order, tuple)
		}
		byTuple[tuple] = item
	}
	for _, item := range guestItems {
		tuple := item.Tuple()
		existing, seen := byTuple[tuple]
		if !seen {
			order = append(order, tuple)
			byTuple[tuple] = item
			continue
		}
		existing.Quantity += item.Quantity
		byTuple[tuple] = existing
	}

	merged := make([]LineItem, 0, len(order))
	for _, tuple := range order {
		item := byTuple[tuple]
		if stockFor != nil {
			if max := stockFor(item); item.Quantity > max {
				item.Quantity = max
			}
		}
		if item.Quantity <= 0 {
			continue
		}
		merged = append(merged, item)
	}
	return merged
}

// MergeDiff describes the store mutations needed to bring the server cart
// in line with a merged collection.
type MergeDiff struct {
	Add    []LineItem
	Update []LineItem
	Remove []LineItem
}

// DiffAgainstServer computes which merged items must be added, updated or
// removed server-side, comparing against the pre-merge server cart.
func DiffAgainstServer(merged, serverItems []LineItem) MergeDiff {
	serverByTuple := make(map[Tuple]LineItem, len(serverItems))
	for _, item := range serverItems {
		serverByTuple[item.Tuple()] = item
	}
	mergedTuples := make(map[Tuple]struct{}, len(merged))

	var diff MergeDiff
	for _, item := range merged {
		tuple := item.Tuple()
		mergedTuples[tuple] = struct{}{}
		existing, onServer := serverByTuple[tuple]
		switch {
		case !onServer:
			diff.Add = append(diff.Add, item)
		case existing.Quantity != item.Quantity:
			item.ID = existing.ID
			diff.Update = append(diff.Update, item)
		}
	}
	for _, item := range serverItems {
		if _, kept := mergedTuples[item.Tuple()]; !kept {
			diff.Remove = append(diff.Remove, item)
		}
	}
	sort.SliceStable(diff.Remove, func(i, j int) bool { return diff.Remove[i].ID < diff.Remove[j].ID })
	return diff
}
