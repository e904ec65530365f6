// Package catalog guesses marketplace categories from product names.
package catalog

import "strings"

// Other is returned when no keyword matches.
const Other = "Other"

// Categorize returns the category for a product name. Matching is
// case-insensitive: exact names first, then the first keyword contained in
// the name.
func Categorize(productName string) string {
	name := strings.ToLower(strings.TrimSpace(productName))
	if name == "" {
		return Other
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	for _, entry := range keywords {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}
	return Other
}

const (
	electronics = "Electronics"
	home        = "Home & Kitchen"
	beauty      = "Beauty"
	fashion     = "Fashion"
	sports      = "Sports & Outdoors"
	baby        = "Baby & Toys"
	pets        = "Pet Supplies"
	food        = "Food"
	office      = "Office"
	auto        = "Automotive"
)

var exactMatch = map[string]string{
	"mouse":      electronics,
	"keyboard":   electronics,
	"monitor":    electronics,
	"earbuds":    electronics,
	"charger":    electronics,
	"마우스":        electronics,
	"키보드":        electronics,
	"이어폰":        electronics,
	"충전기":        electronics,
	"kettle":     home,
	"pan":        home,
	"pillow":     home,
	"수건":         home,
	"냄비":         home,
	"lipstick":   beauty,
	"serum":      beauty,
	"sunscreen":  beauty,
	"선크림":        beauty,
	"t-shirt":    fashion,
	"hoodie":     fashion,
	"sneakers":   fashion,
	"양말":         fashion,
	"yoga mat":   sports,
	"dumbbell":   sports,
	"tent":       sports,
	"diapers":    baby,
	"기저귀":        baby,
	"lego":       baby,
	"cat litter": pets,
	"dog food":   pets,
	"사료":         pets,
	"coffee":     food,
	"ramen":      food,
	"라면":         food,
	"stapler":    office,
	"notebook":   office,
	"dashcam":    auto,
	"블랙박스":       auto,
}

type keywordEntry struct {
	keyword  string
	category string
}

// Longer and more specific keywords come first.
var keywords = []keywordEntry{
	// Phrases that would otherwise hit a shorter, wrong keyword.
	{"mouse pad", office},
	{"phone case", electronics},
	{"car charger", auto},
	{"dog bed", pets},
	{"cat tower", pets},
	{"baby bottle", baby},
	{"protein bar", food},
	{"coffee mug", home},

	// Electronics
	{"bluetooth", electronics},
	{"wireless", electronics},
	{"headphone", electronics},
	{"earbud", electronics},
	{"speaker", electronics},
	{"charger", electronics},
	{"cable", electronics},
	{"keyboard", electronics},
	{"mouse", electronics},
	{"monitor", electronics},
	{"usb", electronics},
	{"led", electronics},
	{"블루투스", electronics},
	{"무선", electronics},
	{"충전", electronics},
	{"케이블", electronics},

	// Home & Kitchen
	{"kitchen", home},
	{"cookware", home},
	{"storage box", home},
	{"organizer", home},
	{"blanket", home},
	{"towel", home},
	{"lamp", home},
	{"mug", home},
	{"주방", home},
	{"수납", home},
	{"이불", home},

	// Beauty
	{"moisturizer", beauty},
	{"cleanser", beauty},
	{"shampoo", beauty},
	{"cosmetic", beauty},
	{"serum", beauty},
	{"cream", beauty},
	{"mask pack", beauty},
	{"화장품", beauty},
	{"샴푸", beauty},
	{"크림", beauty},

	// Fashion
	{"jacket", fashion},
	{"shirt", fashion},
	{"pants", fashion},
	{"dress", fashion},
	{"socks", fashion},
	{"shoes", fashion},
	{"bag", fashion},
	{"티셔츠", fashion},
	{"가방", fashion},

	// Sports & Outdoors
	{"camping", sports},
	{"fitness", sports},
	{"cycling", sports},
	{"hiking", sports},
	{"yoga", sports},
	{"golf", sports},
	{"캠핑", sports},
	{"요가", sports},

	// Baby & Toys
	{"stroller", baby},
	{"diaper", baby},
	{"puzzle", baby},
	{"toy", baby},
	{"kids", baby},
	{"유아", baby},
	{"장난감", baby},

	// Pet Supplies
	{"pet", pets},
	{"dog", pets},
	{"cat", pets},
	{"반려", pets},
	{"강아지", pets},
	{"고양이", pets},

	// Food
	{"snack", food},
	{"coffee", food},
	{"tea", food},
	{"noodle", food},
	{"vitamin", food},
	{"간식", food},
	{"커피", food},

	// Office
	{"stationery", office},
	{"notebook", office},
	{"pen", office},
	{"desk", office},
	{"문구", office},

	// Automotive
	{"car ", auto},
	{"dashcam", auto},
	{"차량", auto},
}
