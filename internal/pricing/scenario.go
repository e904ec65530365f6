package pricing

import (
	"math"

	"github.com/selpix/selpix/internal/model"
)

// ScenarioInput asks for prices around a target margin in percent.
type ScenarioInput struct {
	Cost         float64        `json:"cost" validate:"gte=0"`
	ShippingCost float64        `json:"shippingCost" validate:"gte=0"`
	ExtraCost    float64        `json:"extraCost" validate:"gte=0"`
	TargetMargin float64        `json:"targetMargin" validate:"gte=0,lt=100"`
	Platform     model.Platform `json:"platform" validate:"required,platform"`
}

type Scenario struct {
	MarginRate float64 `json:"marginRate"`
	Price      float64 `json:"price"`
	NetProfit  float64 `json:"netProfit"`
}

type ScenarioSet struct {
	CommissionRate float64   `json:"commissionRate"`
	Recommended    Scenario  `json:"recommended"`
	Min            Scenario  `json:"min"`
	Max            Scenario  `json:"max"`
	BreakEven      Scenario  `json:"breakEven"`
	Candidates     []float64 `json:"candidates"`
}

// Scenarios prices the target margin together with a conservative floor of
// ten points lower (never under 5%), an upside of fifteen points higher and
// the break-even price.
func Scenarios(in ScenarioInput) (ScenarioSet, error) {
	fee, err := CommissionRate(in.Platform)
	if err != nil {
		return ScenarioSet{}, err
	}
	at := func(margin float64) Scenario {
		price := TargetPrice(in.Cost, in.ShippingCost, in.ExtraCost, margin, fee)
		return Scenario{
			MarginRate: margin,
			Price:      price,
			NetProfit:  netProfit(in, price, fee),
		}
	}
	return ScenarioSet{
		CommissionRate: fee,
		Recommended:    at(in.TargetMargin),
		Min:            at(math.Max(5, in.TargetMargin-10)),
		Max:            at(in.TargetMargin + 15),
		BreakEven:      at(0),
		Candidates:     CandidatePrices(in.Cost, in.ShippingCost),
	}, nil
}

func netProfit(in ScenarioInput, price, fee float64) float64 {
	if price == 0 {
		return 0
	}
	return price - in.Cost - in.ShippingCost - in.ExtraCost - price*fee/100
}
