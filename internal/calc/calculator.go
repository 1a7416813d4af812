// Package calc computes the move-in cost breakdown for an offer.
package calc

import (
	"time"

	"github.com/kyiv-estate/rentscout/internal/model"
)

// Breakdown is the derived monetary split for leasing an offer starting now.
// Values stay unrounded; rounding to whole dollars happens at display time.
type Breakdown struct {
	ProratedRemainder float64 `json:"prorated_remainder"`
	Guarantee         float64 `json:"guarantee"`
	Commission        float64 `json:"commission"`
	Total             float64 `json:"total"`
}

// warehouseCommissionRate is the agent commission charged on warehouse
// leases, as a fraction of one monthly payment. Offices carry none.
const warehouseCommissionRate = 0.5

// Lease computes the breakdown for an offer at the given date: the prorated
// rent for the rest of the current month, a two-month guarantee deposit, and
// the kind-dependent commission.
func Lease(o model.Offer, now time.Time) Breakdown {
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	daysLeft := daysInMonth - now.Day()

	daily := o.PriceTotal / float64(daysInMonth)
	prorated := daily * float64(daysLeft)
	guarantee := o.PriceTotal * 2

	commission := 0.0
	if o.Kind == model.KindWarehouse {
		commission = o.PriceTotal * warehouseCommissionRate
	}

	return Breakdown{
		ProratedRemainder: prorated,
		Guarantee:         guarantee,
		Commission:        commission,
		Total:             prorated + guarantee + commission,
	}
}

// Block renders the breakdown as the card annotation appended below an
// offer's display text.
func Block(b Breakdown) string {
	return "\n\n📊 Розрахунок:\n" +
		"— сума до кінця місяця: " + model.FormatAmount(b.ProratedRemainder) + "$\n" +
		"— гарантійна сума: " + model.FormatAmount(b.Guarantee) + "$\n" +
		"— комісія агента: " + model.FormatAmount(b.Commission) + "$\n" +
		"— ВСЬОГО: " + model.FormatAmount(b.Total) + "$"
}
