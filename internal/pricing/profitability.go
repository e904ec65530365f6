package pricing

import (
	"math"
	"slices"

	"github.com/selpix/selpix/internal/model"
)

// Assumptions used to judge a keyword from supplier prices alone.
const (
	defaultShipping  = 3000
	defaultPackaging = 500
	priceMultiplier  = 2.5
	profitSample     = 10
)

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Profitability struct {
	Keyword           string     `json:"keyword"`
	AvgWholesalePrice float64    `json:"avgWholesalePrice"`
	AvgMarginRate     float64    `json:"avgMarginRate"`
	PriceRange        PriceRange `json:"recommendedPriceRange"`
	Score             int        `json:"score"`
	SampleCount       int        `json:"sampleCount"`
}

// Analyze estimates how profitable reselling the cheapest offers of a
// wholesale search would be on consignment, assuming a 2.5x markup.
func Analyze(g model.WholesaleGroup) Profitability {
	out := Profitability{Keyword: g.Keyword}

	var prices []float64
	for _, p := range g.Products {
		if p.Price > 0 {
			prices = append(prices, p.Price)
		}
	}
	if len(prices) == 0 {
		return out
	}
	slices.Sort(prices)
	if len(prices) > profitSample {
		prices = prices[:profitSample]
	}

	fee := commissionRates[model.PlatformConsignment] / 100
	var sumPrice, sumRate float64
	minSell, maxSell := math.Inf(1), math.Inf(-1)
	for _, p := range prices {
		sell := p * priceMultiplier
		net := sell - p - defaultShipping - defaultPackaging - sell*fee
		sumPrice += p
		sumRate += net / sell * 100
		minSell = math.Min(minSell, sell)
		maxSell = math.Max(maxSell, sell)
	}

	n := float64(len(prices))
	avgRate := sumRate / n
	out.AvgWholesalePrice = math.Round(sumPrice / n)
	out.AvgMarginRate = math.Round(avgRate*10) / 10
	out.PriceRange = PriceRange{Min: math.Round(minSell), Max: math.Round(maxSell)}
	out.Score = profitScore(avgRate)
	out.SampleCount = len(prices)
	return out
}

func profitScore(rate float64) int {
	switch {
	case rate >= 40:
		return 100
	case rate >= 30:
		return 80
	case rate >= 20:
		return 60
	case rate >= 10:
		return 40
	}
	return 20
}
