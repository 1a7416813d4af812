// Package filter applies numeric and categorical predicates to extracted
// offers and ranks the survivors.
package filter

import (
	"sort"

	"github.com/kyiv-estate/rentscout/internal/model"
)

// Bucket is the binary warehouse size split. Both buckets include exactly
// 1000 m².
type Bucket string

const (
	BucketAny    Bucket = ""
	BucketLE1000 Bucket = "le1000"
	BucketGE1000 Bucket = "ge1000"
)

const bucketSplitM2 = 1000.0

// Params holds one search's predicates. All bounds are inclusive; nil means
// unbounded on that side.
type Params struct {
	Kind    model.Kind
	MinSize float64
	MaxSize *float64
	MinPPM2 *float64
	MaxPPM2 *float64

	// Warehouse-only predicates.
	Shore      model.Shore // empty: no shore filter
	SizeBucket Bucket
}

// Matches reports whether a single offer passes the predicates. An offer
// with unknown shore is excluded when a shore filter is active.
func (p Params) Matches(o model.Offer) bool {
	if o.SizeM2 < p.MinSize {
		return false
	}
	if p.MaxSize != nil && o.SizeM2 > *p.MaxSize {
		return false
	}
	if p.MinPPM2 != nil && o.PricePerM2 < *p.MinPPM2 {
		return false
	}
	if p.MaxPPM2 != nil && o.PricePerM2 > *p.MaxPPM2 {
		return false
	}

	if o.Kind == model.KindWarehouse {
		if p.Shore != model.ShoreUnknown && o.Shore != p.Shore {
			return false
		}
		switch p.SizeBucket {
		case BucketLE1000:
			if o.SizeM2 > bucketSplitM2 {
				return false
			}
		case BucketGE1000:
			if o.SizeM2 < bucketSplitM2 {
				return false
			}
		}
	}
	return true
}

// Apply filters offers by p and returns them sorted ascending by total
// monthly price. The sort is stable: equal prices keep discovery order.
func Apply(offers []model.Offer, p Params) []model.Offer {
	out := make([]model.Offer, 0, len(offers))
	for _, o := range offers {
		if p.Matches(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriceTotal < out[j].PriceTotal
	})
	return out
}
