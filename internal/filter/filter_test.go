package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyiv-estate/rentscout/internal/model"
)

func f64(v float64) *float64 { return &v }

func office(id int, size, price float64) model.Offer {
	return model.Offer{
		Kind:       model.KindOffice,
		Identity:   id,
		SizeM2:     size,
		PriceTotal: price,
		PricePerM2: price / size,
	}
}

func warehouse(id int, size, price float64, shore model.Shore) model.Offer {
	return model.Offer{
		Kind:       model.KindWarehouse,
		Identity:   id,
		SizeM2:     size,
		PriceTotal: price,
		PricePerM2: price / size,
		Shore:      shore,
	}
}

func TestSizeBoundsInclusive(t *testing.T) {
	t.Parallel()

	offers := []model.Offer{
		office(1, 199, 1990),
		office(2, 200, 2000),
		office(3, 350, 3500),
		office(4, 500, 5000),
		office(5, 501, 5010),
	}
	got := Apply(offers, Params{Kind: model.KindOffice, MinSize: 200, MaxSize: f64(500)})

	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].Identity)
	assert.Equal(t, 3, got[1].Identity)
	assert.Equal(t, 4, got[2].Identity)
}

func TestUpperBoundOmittedMeansUnbounded(t *testing.T) {
	t.Parallel()

	offers := []model.Offer{office(1, 1000, 10000), office(2, 50000, 500000)}
	got := Apply(offers, Params{Kind: model.KindOffice, MinSize: 1000})
	assert.Len(t, got, 2)
}

func TestPricePerM2BoundsInclusive(t *testing.T) {
	t.Parallel()

	offers := []model.Offer{
		office(1, 100, 1900), // 19 $/m2
		office(2, 100, 2000), // 20
		office(3, 100, 3000), // 30
		office(4, 100, 3100), // 31
	}
	got := Apply(offers, Params{Kind: model.KindOffice, MinPPM2: f64(20), MaxPPM2: f64(30)})

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Identity)
	assert.Equal(t, 3, got[1].Identity)
}

func TestRankingStableAscendingByTotalPrice(t *testing.T) {
	t.Parallel()

	offers := []model.Offer{
		office(1, 100, 500),
		office(2, 100, 300),
		office(3, 200, 300),
		office(4, 100, 700),
	}
	got := Apply(offers, Params{Kind: model.KindOffice})

	require.Len(t, got, 4)
	assert.Equal(t, []float64{300, 300, 500, 700}, []float64{
		got[0].PriceTotal, got[1].PriceTotal, got[2].PriceTotal, got[3].PriceTotal,
	})
	// Equal prices keep discovery order: offer 2 before offer 3.
	assert.Equal(t, 2, got[0].Identity)
	assert.Equal(t, 3, got[1].Identity)
}

func TestShoreFilterExcludesUnknown(t *testing.T) {
	t.Parallel()

	offers := []model.Offer{
		warehouse(1, 500, 2500, model.ShoreLeft),
		warehouse(2, 500, 2600, model.ShoreRight),
		warehouse(3, 500, 2400, model.ShoreUnknown),
	}

	got := Apply(offers, Params{Kind: model.KindWarehouse, Shore: model.ShoreLeft})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Identity)

	// No shore filter: unknown-shore offers pass.
	got = Apply(offers, Params{Kind: model.KindWarehouse})
	assert.Len(t, got, 3)
}

func TestSizeBucketInclusiveAtSplit(t *testing.T) {
	t.Parallel()

	offers := []model.Offer{
		warehouse(1, 999, 3000, model.ShoreLeft),
		warehouse(2, 1000, 3100, model.ShoreLeft),
		warehouse(3, 1001, 3200, model.ShoreLeft),
	}

	le := Apply(offers, Params{Kind: model.KindWarehouse, SizeBucket: BucketLE1000})
	require.Len(t, le, 2)
	assert.Equal(t, 1, le[0].Identity)
	assert.Equal(t, 2, le[1].Identity)

	ge := Apply(offers, Params{Kind: model.KindWarehouse, SizeBucket: BucketGE1000})
	require.Len(t, ge, 2)
	assert.Equal(t, 2, ge[0].Identity)
	assert.Equal(t, 3, ge[1].Identity)
}
