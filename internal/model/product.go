package model

import (
	"time"

	"github.com/selpix/selpix/internal/query"
)

type Product struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	WholesalePrice   float64   `json:"wholesalePrice"`
	RecommendedPrice float64   `json:"recommendedPrice"`
	Margin           float64   `json:"margin"`
	Competition      string    `json:"competition"`
	SearchVolume     int64     `json:"searchVolume"`
	Category         string    `json:"category"`
	Image            string    `json:"image"`
	Source           string    `json:"source"`
	Trend            string    `json:"trend"`
	Score            float64   `json:"score"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`

	Margins       []Margin       `json:"margins,omitempty"`
	DetailPages   []DetailPage   `json:"detailPages,omitempty"`
	Registrations []Registration `json:"registrations,omitempty"`
}

type ProductCreate struct {
	Name             string  `json:"name" db:"name" validate:"required,max=200"`
	WholesalePrice   float64 `json:"wholesalePrice" db:"wholesale_price" validate:"gte=0"`
	RecommendedPrice float64 `json:"recommendedPrice" db:"recommended_price" validate:"gte=0"`
	Margin           float64 `json:"margin" db:"margin"`
	Competition      string  `json:"competition" db:"competition" validate:"max=50"`
	SearchVolume     int64   `json:"searchVolume" db:"search_volume" validate:"gte=0"`
	Category         string  `json:"category" db:"category" validate:"max=100"`
	Image            string  `json:"image" db:"image" validate:"omitempty,url"`
	Source           string  `json:"source" db:"source" validate:"max=100"`
	Trend            string  `json:"trend" db:"trend" validate:"max=50"`
	Score            float64 `json:"score" db:"score" validate:"gte=0,lte=100"`
}

type ProductUpdate struct {
	Name             *string  `json:"name,omitempty" db:"name" validate:"omitempty,min=1,max=200"`
	WholesalePrice   *float64 `json:"wholesalePrice,omitempty" db:"wholesale_price" validate:"omitempty,gte=0"`
	RecommendedPrice *float64 `json:"recommendedPrice,omitempty" db:"recommended_price" validate:"omitempty,gte=0"`
	Margin           *float64 `json:"margin,omitempty" db:"margin"`
	Competition      *string  `json:"competition,omitempty" db:"competition" validate:"omitempty,max=50"`
	SearchVolume     *int64   `json:"searchVolume,omitempty" db:"search_volume" validate:"omitempty,gte=0"`
	Category         *string  `json:"category,omitempty" db:"category" validate:"omitempty,max=100"`
	Image            *string  `json:"image,omitempty" db:"image" validate:"omitempty,url"`
	Source           *string  `json:"source,omitempty" db:"source" validate:"omitempty,max=100"`
	Trend            *string  `json:"trend,omitempty" db:"trend" validate:"omitempty,max=50"`
	Score            *float64 `json:"score,omitempty" db:"score" validate:"omitempty,gte=0,lte=100"`
}

type ProductWhere struct {
	ID               *query.Filter[int64]               `json:"id,omitempty" db:"id"`
	Name             *query.StringFilter                `json:"name,omitempty" db:"name"`
	WholesalePrice   *query.Filter[float64]             `json:"wholesalePrice,omitempty" db:"wholesale_price"`
	RecommendedPrice *query.Filter[float64]             `json:"recommendedPrice,omitempty" db:"recommended_price"`
	Margin           *query.Filter[float64]             `json:"margin,omitempty" db:"margin"`
	Competition      *query.StringFilter                `json:"competition,omitempty" db:"competition"`
	SearchVolume     *query.Filter[int64]               `json:"searchVolume,omitempty" db:"search_volume"`
	Category         *query.StringFilter                `json:"category,omitempty" db:"category"`
	Source           *query.StringFilter                `json:"source,omitempty" db:"source"`
	Trend            *query.StringFilter                `json:"trend,omitempty" db:"trend"`
	Score            *query.Filter[float64]             `json:"score,omitempty" db:"score"`
	CreatedAt        *query.Filter[time.Time]           `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt        *query.Filter[time.Time]           `json:"updatedAt,omitempty" db:"updated_at"`
	Margins          *query.Relation[MarginWhere]       `json:"margins,omitempty" db:"id" rel:"margins.product_id"`
	DetailPages      *query.Relation[DetailPageWhere]   `json:"detailPages,omitempty" db:"id" rel:"detail_pages.product_id"`
	Registrations    *query.Relation[RegistrationWhere] `json:"registrations,omitempty" db:"id" rel:"registrations.product_id"`
	AND              []ProductWhere                     `json:"AND,omitempty" logic:"and"`
	OR               []ProductWhere                     `json:"OR,omitempty" logic:"or"`
	NOT              []ProductWhere                     `json:"NOT,omitempty" logic:"not"`
}

type ProductInclude struct {
	Margins       bool `json:"margins,omitempty"`
	DetailPages   bool `json:"detailPages,omitempty"`
	Registrations bool `json:"registrations,omitempty"`
}

// Recommendation is a keyword search whose results are kept as items.
type Recommendation struct {
	ID        int64     `json:"id"`
	Keyword   string    `json:"keyword"`
	CreatedAt time.Time `json:"createdAt"`

	Items []RecommendationItem `json:"items,omitempty"`
}

type RecommendationItem struct {
	ID               int64   `json:"id"`
	RecommendationID int64   `json:"recommendationId"`
	Name             string  `json:"name"`
	WholesalePrice   float64 `json:"wholesalePrice"`
	RecommendedPrice float64 `json:"recommendedPrice"`
	Margin           float64 `json:"margin"`
	Competition      string  `json:"competition"`
	SearchVolume     int64   `json:"searchVolume"`
	Trend            string  `json:"trend"`
	Score            float64 `json:"score"`
}

type RecommendationCreate struct {
	Keyword string                     `json:"keyword" db:"keyword" validate:"required,max=100"`
	Items   []RecommendationItemCreate `json:"items,omitempty" db:"-" validate:"max=100,dive"`
}

type RecommendationItemCreate struct {
	Name             string  `json:"name" db:"name" validate:"required,max=200"`
	WholesalePrice   float64 `json:"wholesalePrice" db:"wholesale_price" validate:"gte=0"`
	RecommendedPrice float64 `json:"recommendedPrice" db:"recommended_price" validate:"gte=0"`
	Margin           float64 `json:"margin" db:"margin"`
	Competition      string  `json:"competition" db:"competition" validate:"max=50"`
	SearchVolume     int64   `json:"searchVolume" db:"search_volume" validate:"gte=0"`
	Trend            string  `json:"trend" db:"trend" validate:"max=50"`
	Score            float64 `json:"score" db:"score" validate:"gte=0,lte=100"`
}

type RecommendationUpdate struct {
	Keyword *string `json:"keyword,omitempty" db:"keyword" validate:"omitempty,min=1,max=100"`
}

type RecommendationItemUpdate struct {
	Name             *string  `json:"name,omitempty" db:"name" validate:"omitempty,min=1,max=200"`
	WholesalePrice   *float64 `json:"wholesalePrice,omitempty" db:"wholesale_price" validate:"omitempty,gte=0"`
	RecommendedPrice *float64 `json:"recommendedPrice,omitempty" db:"recommended_price" validate:"omitempty,gte=0"`
	Margin           *float64 `json:"margin,omitempty" db:"margin"`
	Competition      *string  `json:"competition,omitempty" db:"competition" validate:"omitempty,max=50"`
	SearchVolume     *int64   `json:"searchVolume,omitempty" db:"search_volume" validate:"omitempty,gte=0"`
	Trend            *string  `json:"trend,omitempty" db:"trend" validate:"omitempty,max=50"`
	Score            *float64 `json:"score,omitempty" db:"score" validate:"omitempty,gte=0,lte=100"`
}

type RecommendationWhere struct {
	ID        *query.Filter[int64]                     `json:"id,omitempty" db:"id"`
	Keyword   *query.StringFilter                      `json:"keyword,omitempty" db:"keyword"`
	CreatedAt *query.Filter[time.Time]                 `json:"createdAt,omitempty" db:"created_at"`
	Items     *query.Relation[RecommendationItemWhere] `json:"items,omitempty" db:"id" rel:"recommendation_items.recommendation_id"`
	AND       []RecommendationWhere                    `json:"AND,omitempty" logic:"and"`
	OR        []RecommendationWhere                    `json:"OR,omitempty" logic:"or"`
	NOT       []RecommendationWhere                    `json:"NOT,omitempty" logic:"not"`
}

type RecommendationItemWhere struct {
	ID               *query.Filter[int64]      `json:"id,omitempty" db:"id"`
	RecommendationID *query.Filter[int64]      `json:"recommendationId,omitempty" db:"recommendation_id"`
	Name             *query.StringFilter       `json:"name,omitempty" db:"name"`
	WholesalePrice   *query.Filter[float64]    `json:"wholesalePrice,omitempty" db:"wholesale_price"`
	RecommendedPrice *query.Filter[float64]    `json:"recommendedPrice,omitempty" db:"recommended_price"`
	Margin           *query.Filter[float64]    `json:"margin,omitempty" db:"margin"`
	Competition      *query.StringFilter       `json:"competition,omitempty" db:"competition"`
	SearchVolume     *query.Filter[int64]      `json:"searchVolume,omitempty" db:"search_volume"`
	Trend            *query.StringFilter       `json:"trend,omitempty" db:"trend"`
	Score            *query.Filter[float64]    `json:"score,omitempty" db:"score"`
	AND              []RecommendationItemWhere `json:"AND,omitempty" logic:"and"`
	OR               []RecommendationItemWhere `json:"OR,omitempty" logic:"or"`
	NOT              []RecommendationItemWhere `json:"NOT,omitempty" logic:"not"`
}

type RecommendationInclude struct {
	Items bool `json:"items,omitempty"`
}

// WholesaleGroup is a keyword search against wholesale suppliers.
type WholesaleGroup struct {
	ID        int64     `json:"id"`
	Keyword   string    `json:"keyword"`
	CreatedAt time.Time `json:"createdAt"`

	Products []WholesaleProduct `json:"products,omitempty"`
}

type WholesaleProduct struct {
	ID               int64     `json:"id"`
	WholesaleGroupID int64     `json:"wholesaleGroupId"`
	Name             string    `json:"name"`
	Price            float64   `json:"price"`
	Source           string    `json:"source"`
	Rating           float64   `json:"rating"`
	MinOrder         int64     `json:"minOrder"`
	URL              string    `json:"url"`
	CreatedAt        time.Time `json:"createdAt"`
}

type WholesaleGroupCreate struct {
	Keyword  string                   `json:"keyword" db:"keyword" validate:"required,max=100"`
	Products []WholesaleProductCreate `json:"products,omitempty" db:"-" validate:"max=200,dive"`
}

type WholesaleProductCreate struct {
	Name     string  `json:"name" db:"name" validate:"required,max=200"`
	Price    float64 `json:"price" db:"price" validate:"gte=0"`
	Source   string  `json:"source" db:"source" validate:"required,max=100"`
	Rating   float64 `json:"rating" db:"rating" validate:"gte=0,lte=5"`
	MinOrder int64   `json:"minOrder" db:"min_order" validate:"omitempty,gte=1"`
	URL      string  `json:"url" db:"url" validate:"omitempty,url"`
}

type WholesaleGroupUpdate struct {
	Keyword *string `json:"keyword,omitempty" db:"keyword" validate:"omitempty,min=1,max=100"`
}

type WholesaleProductUpdate struct {
	Name     *string  `json:"name,omitempty" db:"name" validate:"omitempty,min=1,max=200"`
	Price    *float64 `json:"price,omitempty" db:"price" validate:"omitempty,gte=0"`
	Source   *string  `json:"source,omitempty" db:"source" validate:"omitempty,max=100"`
	Rating   *float64 `json:"rating,omitempty" db:"rating" validate:"omitempty,gte=0,lte=5"`
	MinOrder *int64   `json:"minOrder,omitempty" db:"min_order" validate:"omitempty,gte=1"`
	URL      *string  `json:"url,omitempty" db:"url" validate:"omitempty,url"`
}

type WholesaleGroupWhere struct {
	ID        *query.Filter[int64]                   `json:"id,omitempty" db:"id"`
	Keyword   *query.StringFilter                    `json:"keyword,omitempty" db:"keyword"`
	CreatedAt *query.Filter[time.Time]               `json:"createdAt,omitempty" db:"created_at"`
	Products  *query.Relation[WholesaleProductWhere] `json:"products,omitempty" db:"id" rel:"wholesale_products.wholesale_group_id"`
	AND       []WholesaleGroupWhere                  `json:"AND,omitempty" logic:"and"`
	OR        []WholesaleGroupWhere                  `json:"OR,omitempty" logic:"or"`
	NOT       []WholesaleGroupWhere                  `json:"NOT,omitempty" logic:"not"`
}

type WholesaleProductWhere struct {
	ID               *query.Filter[int64]     `json:"id,omitempty" db:"id"`
	WholesaleGroupID *query.Filter[int64]     `json:"wholesaleGroupId,omitempty" db:"wholesale_group_id"`
	Name             *query.StringFilter      `json:"name,omitempty" db:"name"`
	Price            *query.Filter[float64]   `json:"price,omitempty" db:"price"`
	Source           *query.StringFilter      `json:"source,omitempty" db:"source"`
	Rating           *query.Filter[float64]   `json:"rating,omitempty" db:"rating"`
	MinOrder         *query.Filter[int64]     `json:"minOrder,omitempty" db:"min_order"`
	CreatedAt        *query.Filter[time.Time] `json:"createdAt,omitempty" db:"created_at"`
	AND              []WholesaleProductWhere  `json:"AND,omitempty" logic:"and"`
	OR               []WholesaleProductWhere  `json:"OR,omitempty" logic:"or"`
	NOT              []WholesaleProductWhere  `json:"NOT,omitempty" logic:"not"`
}

type WholesaleGroupInclude struct {
	Products bool `json:"products,omitempty"`
}
