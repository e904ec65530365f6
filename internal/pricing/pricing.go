// Package pricing computes marketplace margins and price targets.
package pricing

import (
	"errors"
	"math"

	"github.com/selpix/selpix/internal/model"
)

var ErrUnknownPlatform = errors.New("unknown platform")

// commissionRates are the marketplace fees in percent of the selling price.
var commissionRates = map[model.Platform]float64{
	model.PlatformRocket:      10.8,
	model.PlatformWing:        6.5,
	model.PlatformConsignment: 8.0,
}

// CommissionRate returns the fee percentage charged on platform.
func CommissionRate(p model.Platform) (float64, error) {
	rate, ok := commissionRates[p]
	if !ok {
		return 0, ErrUnknownPlatform
	}
	return rate, nil
}

// Input describes one sale. CommissionRate overrides the platform fee when
// positive.
type Input struct {
	ProductID      *int64         `json:"productId,omitempty" validate:"omitempty,gt=0"`
	ProductName    string         `json:"productName" validate:"required,max=200"`
	WholesalePrice float64        `json:"wholesalePrice" validate:"gte=0"`
	SellingPrice   float64        `json:"sellingPrice" validate:"gte=0"`
	ShippingCost   float64        `json:"shippingCost" validate:"gte=0"`
	AdCost         float64        `json:"adCost" validate:"gte=0"`
	PackagingCost  float64        `json:"packagingCost" validate:"gte=0"`
	Platform       model.Platform `json:"platform" validate:"required,platform"`
	CommissionRate float64        `json:"commissionRate,omitempty" validate:"gte=0,lt=100"`
}

type Result struct {
	CommissionRate float64 `json:"commissionRate"`
	Commission     float64 `json:"commission"`
	NetMargin      float64 `json:"netMargin"`
	MarginRate     float64 `json:"marginRate"`
	BreakEven      float64 `json:"breakEven"`
	ROAS           float64 `json:"roas"`
}

// Calculate works out the fee, net margin and break-even price of a sale.
// MarginRate is zero when nothing is sold for a positive price; ROAS is
// zero without ad spend.
func Calculate(in Input) (Result, error) {
	rate := in.CommissionRate
	if rate <= 0 {
		var err error
		if rate, err = CommissionRate(in.Platform); err != nil {
			return Result{}, err
		}
	}

	r := Result{CommissionRate: rate}
	r.Commission = in.SellingPrice * rate / 100
	r.NetMargin = in.SellingPrice - in.WholesalePrice - in.ShippingCost - r.Commission - in.AdCost - in.PackagingCost
	if in.SellingPrice > 0 {
		r.MarginRate = r.NetMargin / in.SellingPrice * 100
	}
	if in.AdCost > 0 {
		r.ROAS = in.SellingPrice / in.AdCost * 100
	}
	fixed := in.WholesalePrice + in.ShippingCost + in.PackagingCost + in.AdCost
	r.BreakEven = fixed / (1 - rate/100)
	return r, nil
}

// Margin converts a calculation into a storable margin record.
func Margin(in Input, r Result) model.MarginCreate {
	return model.MarginCreate{
		ProductID:      in.ProductID,
		ProductName:    in.ProductName,
		WholesalePrice: in.WholesalePrice,
		SellingPrice:   in.SellingPrice,
		ShippingCost:   in.ShippingCost,
		Commission:     r.Commission,
		AdCost:         in.AdCost,
		PackagingCost:  in.PackagingCost,
		NetMargin:      r.NetMargin,
		MarginRate:     r.MarginRate,
		Platform:       in.Platform,
	}
}

// TargetPrice is the lowest price, rounded up to 100, that leaves marginPct
// of it as profit after feePct and the given costs. It returns 0 when the
// margin and fee leave nothing to cover costs.
func TargetPrice(cost, shipping, extra, marginPct, feePct float64) float64 {
	denom := 1 - marginPct/100 - feePct/100
	if denom <= 0 {
		return 0
	}
	return roundUp((cost+shipping+extra)/denom, 100)
}

// CandidatePrices lists prices from 1.2x to 2.5x of cost plus shipping in
// 0.1 steps, rounded to the nearest 100, without duplicates.
func CandidatePrices(cost, shipping float64) []float64 {
	base := cost + shipping
	var out []float64
	seen := make(map[float64]bool)
	for m := 12; m <= 25; m++ {
		p := math.Round(base*float64(m)/10/100) * 100
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// roundUp rounds v up to a multiple of step, ignoring float noise below 1e-9.
func roundUp(v, step float64) float64 {
	return math.Ceil(v/step-1e-9) * step
}
