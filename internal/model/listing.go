package model

import (
	"time"

	"github.com/selpix/selpix/internal/query"
)

type Margin struct {
	ID             int64     `json:"id"`
	ProductID      *int64    `json:"productId"`
	ProductName    string    `json:"productName"`
	WholesalePrice float64   `json:"wholesalePrice"`
	SellingPrice   float64   `json:"sellingPrice"`
	ShippingCost   float64   `json:"shippingCost"`
	Commission     float64   `json:"commission"`
	AdCost         float64   `json:"adCost"`
	PackagingCost  float64   `json:"packagingCost"`
	NetMargin      float64   `json:"netMargin"`
	MarginRate     float64   `json:"marginRate"`
	Platform       Platform  `json:"platform"`
	CalculatedAt   time.Time `json:"calculatedAt"`

	Product *Product `json:"product,omitempty"`
}

type MarginCreate struct {
	ProductID      *int64   `json:"productId,omitempty" db:"product_id" validate:"omitempty,gt=0"`
	ProductName    string   `json:"productName" db:"product_name" validate:"required,max=200"`
	WholesalePrice float64  `json:"wholesalePrice" db:"wholesale_price" validate:"gte=0"`
	SellingPrice   float64  `json:"sellingPrice" db:"selling_price" validate:"gte=0"`
	ShippingCost   float64  `json:"shippingCost" db:"shipping_cost" validate:"gte=0"`
	Commission     float64  `json:"commission" db:"commission" validate:"gte=0"`
	AdCost         float64  `json:"adCost" db:"ad_cost" validate:"gte=0"`
	PackagingCost  float64  `json:"packagingCost" db:"packaging_cost" validate:"gte=0"`
	NetMargin      float64  `json:"netMargin" db:"net_margin"`
	MarginRate     float64  `json:"marginRate" db:"margin_rate"`
	Platform       Platform `json:"platform" db:"platform" validate:"required,platform"`
}

type MarginUpdate struct {
	ProductID      query.Optional[int64] `json:"productId" db:"product_id" validate:"omitempty,gt=0"`
	ProductName    *string               `json:"productName,omitempty" db:"product_name" validate:"omitempty,min=1,max=200"`
	WholesalePrice *float64              `json:"wholesalePrice,omitempty" db:"wholesale_price" validate:"omitempty,gte=0"`
	SellingPrice   *float64              `json:"sellingPrice,omitempty" db:"selling_price" validate:"omitempty,gte=0"`
	ShippingCost   *float64              `json:"shippingCost,omitempty" db:"shipping_cost" validate:"omitempty,gte=0"`
	Commission     *float64              `json:"commission,omitempty" db:"commission" validate:"omitempty,gte=0"`
	AdCost         *float64              `json:"adCost,omitempty" db:"ad_cost" validate:"omitempty,gte=0"`
	PackagingCost  *float64              `json:"packagingCost,omitempty" db:"packaging_cost" validate:"omitempty,gte=0"`
	NetMargin      *float64              `json:"netMargin,omitempty" db:"net_margin"`
	MarginRate     *float64              `json:"marginRate,omitempty" db:"margin_rate"`
	Platform       *Platform             `json:"platform,omitempty" db:"platform" validate:"omitempty,platform"`
}

type MarginWhere struct {
	ID             *query.Filter[int64]     `json:"id,omitempty" db:"id"`
	ProductID      *query.Filter[int64]     `json:"productId,omitempty" db:"product_id"`
	ProductName    *query.StringFilter      `json:"productName,omitempty" db:"product_name"`
	WholesalePrice *query.Filter[float64]   `json:"wholesalePrice,omitempty" db:"wholesale_price"`
	SellingPrice   *query.Filter[float64]   `json:"sellingPrice,omitempty" db:"selling_price"`
	NetMargin      *query.Filter[float64]   `json:"netMargin,omitempty" db:"net_margin"`
	MarginRate     *query.Filter[float64]   `json:"marginRate,omitempty" db:"margin_rate"`
	Platform       *query.Filter[Platform]  `json:"platform,omitempty" db:"platform"`
	CalculatedAt   *query.Filter[time.Time] `json:"calculatedAt,omitempty" db:"calculated_at"`
	AND            []MarginWhere            `json:"AND,omitempty" logic:"and"`
	OR             []MarginWhere            `json:"OR,omitempty" logic:"or"`
	NOT            []MarginWhere            `json:"NOT,omitempty" logic:"not"`
}

type MarginInclude struct {
	Product bool `json:"product,omitempty"`
}

// DetailPage is generated sales copy for a product listing.
type DetailPage struct {
	ID          int64     `json:"id"`
	ProductID   *int64    `json:"productId"`
	ProductName string    `json:"productName"`
	Summary     string    `json:"summary"`
	USPs        []string  `json:"usps"`
	Keywords    []string  `json:"keywords"`
	Template    string    `json:"template"`
	CreatedAt   time.Time `json:"createdAt"`

	Product *Product `json:"product,omitempty"`
}

type DetailPageCreate struct {
	ProductID   *int64   `json:"productId,omitempty" db:"product_id" validate:"omitempty,gt=0"`
	ProductName string   `json:"productName" db:"product_name" validate:"required,max=200"`
	Summary     string   `json:"summary" db:"summary" validate:"max=2000"`
	USPs        []string `json:"usps" db:"usps,json" validate:"max=20,dive,max=300"`
	Keywords    []string `json:"keywords" db:"keywords,json" validate:"max=50,dive,max=100"`
	Template    string   `json:"template" db:"template" validate:"max=50"`
}

type DetailPageUpdate struct {
	ProductID   query.Optional[int64] `json:"productId" db:"product_id" validate:"omitempty,gt=0"`
	ProductName *string               `json:"productName,omitempty" db:"product_name" validate:"omitempty,min=1,max=200"`
	Summary     *string               `json:"summary,omitempty" db:"summary" validate:"omitempty,max=2000"`
	USPs        *[]string             `json:"usps,omitempty" db:"usps,json" validate:"omitempty,max=20,dive,max=300"`
	Keywords    *[]string             `json:"keywords,omitempty" db:"keywords,json" validate:"omitempty,max=50,dive,max=100"`
	Template    *string               `json:"template,omitempty" db:"template" validate:"omitempty,max=50"`
}

type DetailPageWhere struct {
	ID          *query.Filter[int64]     `json:"id,omitempty" db:"id"`
	ProductID   *query.Filter[int64]     `json:"productId,omitempty" db:"product_id"`
	ProductName *query.StringFilter      `json:"productName,omitempty" db:"product_name"`
	Summary     *query.StringFilter      `json:"summary,omitempty" db:"summary"`
	Template    *query.StringFilter      `json:"template,omitempty" db:"template"`
	CreatedAt   *query.Filter[time.Time] `json:"createdAt,omitempty" db:"created_at"`
	AND         []DetailPageWhere        `json:"AND,omitempty" logic:"and"`
	OR          []DetailPageWhere        `json:"OR,omitempty" logic:"or"`
	NOT         []DetailPageWhere        `json:"NOT,omitempty" logic:"not"`
}

type DetailPageInclude struct {
	Product bool `json:"product,omitempty"`
}

// Registration tracks a product listing on a marketplace.
type Registration struct {
	ID               int64              `json:"id"`
	ProductID        *int64             `json:"productId"`
	ProductName      string             `json:"productName"`
	Category         string             `json:"category"`
	RecommendedTitle string             `json:"recommendedTitle"`
	Price            float64            `json:"price"`
	WholesalePrice   float64            `json:"wholesalePrice"`
	Status           RegistrationStatus `json:"status"`
	Platform         string             `json:"platform"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`

	Product *Product `json:"product,omitempty"`
}

type RegistrationCreate struct {
	ProductID        *int64             `json:"productId,omitempty" db:"product_id" validate:"omitempty,gt=0"`
	ProductName      string             `json:"productName" db:"product_name" validate:"required,max=200"`
	Category         string             `json:"category" db:"category" validate:"max=100"`
	RecommendedTitle string             `json:"recommendedTitle" db:"recommended_title" validate:"max=200"`
	Price            float64            `json:"price" db:"price" validate:"gte=0"`
	WholesalePrice   float64            `json:"wholesalePrice" db:"wholesale_price" validate:"gte=0"`
	Status           RegistrationStatus `json:"status,omitempty" db:"status" validate:"omitempty,regstatus"`
	Platform         string             `json:"platform,omitempty" db:"platform" validate:"omitempty,max=50"`
}

type RegistrationUpdate struct {
	ProductID        query.Optional[int64] `json:"productId" db:"product_id" validate:"omitempty,gt=0"`
	ProductName      *string               `json:"productName,omitempty" db:"product_name" validate:"omitempty,min=1,max=200"`
	Category         *string               `json:"category,omitempty" db:"category" validate:"omitempty,max=100"`
	RecommendedTitle *string               `json:"recommendedTitle,omitempty" db:"recommended_title" validate:"omitempty,max=200"`
	Price            *float64              `json:"price,omitempty" db:"price" validate:"omitempty,gte=0"`
	WholesalePrice   *float64              `json:"wholesalePrice,omitempty" db:"wholesale_price" validate:"omitempty,gte=0"`
	Status           *RegistrationStatus   `json:"status,omitempty" db:"status" validate:"omitempty,regstatus"`
	Platform         *string               `json:"platform,omitempty" db:"platform" validate:"omitempty,max=50"`
}

type RegistrationWhere struct {
	ID               *query.Filter[int64]              `json:"id,omitempty" db:"id"`
	ProductID        *query.Filter[int64]              `json:"productId,omitempty" db:"product_id"`
	ProductName      *query.StringFilter               `json:"productName,omitempty" db:"product_name"`
	Category         *query.StringFilter               `json:"category,omitempty" db:"category"`
	RecommendedTitle *query.StringFilter               `json:"recommendedTitle,omitempty" db:"recommended_title"`
	Price            *query.Filter[float64]            `json:"price,omitempty" db:"price"`
	WholesalePrice   *query.Filter[float64]            `json:"wholesalePrice,omitempty" db:"wholesale_price"`
	Status           *query.Filter[RegistrationStatus] `json:"status,omitempty" db:"status"`
	Platform         *query.StringFilter               `json:"platform,omitempty" db:"platform"`
	CreatedAt        *query.Filter[time.Time]          `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt        *query.Filter[time.Time]          `json:"updatedAt,omitempty" db:"updated_at"`
	AND              []RegistrationWhere               `json:"AND,omitempty" logic:"and"`
	OR               []RegistrationWhere               `json:"OR,omitempty" logic:"or"`
	NOT              []RegistrationWhere               `json:"NOT,omitempty" logic:"not"`
}

type RegistrationInclude struct {
	Product bool `json:"product,omitempty"`
}
