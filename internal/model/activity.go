package model

import (
	"time"

	"github.com/selpix/selpix/internal/query"
)

type ActivityLog struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	ProductName string    `json:"productName"`
	Status      string    `json:"status"`
	Price       *float64  `json:"price"`
	Details     *string   `json:"details"`
	Timestamp   time.Time `json:"timestamp"`
}

type ActivityLogCreate struct {
	Action      string   `json:"action" db:"action" validate:"required,max=100"`
	ProductName string   `json:"productName" db:"product_name" validate:"max=200"`
	Status      string   `json:"status" db:"status" validate:"required,oneof=success failed pending"`
	Price       *float64 `json:"price,omitempty" db:"price" validate:"omitempty,gte=0"`
	Details     *string  `json:"details,omitempty" db:"details" validate:"omitempty,max=2000"`
}

type ActivityLogUpdate struct {
	Action      *string                 `json:"action,omitempty" db:"action" validate:"omitempty,min=1,max=100"`
	ProductName *string                 `json:"productName,omitempty" db:"product_name" validate:"omitempty,max=200"`
	Status      *string                 `json:"status,omitempty" db:"status" validate:"omitempty,oneof=success failed pending"`
	Price       query.Optional[float64] `json:"price" db:"price" validate:"omitempty,gte=0"`
	Details     query.Optional[string]  `json:"details" db:"details" validate:"omitempty,max=2000"`
}

type ActivityLogWhere struct {
	ID          *query.Filter[int64]     `json:"id,omitempty" db:"id"`
	Action      *query.StringFilter      `json:"action,omitempty" db:"action"`
	ProductName *query.StringFilter      `json:"productName,omitempty" db:"product_name"`
	Status      *query.StringFilter      `json:"status,omitempty" db:"status"`
	Price       *query.Filter[float64]   `json:"price,omitempty" db:"price"`
	Details     *query.StringFilter      `json:"details,omitempty" db:"details"`
	Timestamp   *query.Filter[time.Time] `json:"timestamp,omitempty" db:"timestamp"`
	AND         []ActivityLogWhere       `json:"AND,omitempty" logic:"and"`
	OR          []ActivityLogWhere       `json:"OR,omitempty" logic:"or"`
	NOT         []ActivityLogWhere       `json:"NOT,omitempty" logic:"not"`
}

// DailyStat is the rollup of one calendar day (UTC), keyed by YYYY-MM-DD.
type DailyStat struct {
	ID                int64     `json:"id"`
	Date              string    `json:"date"`
	ProductCount      int64     `json:"productCount"`
	RegistrationCount int64     `json:"registrationCount"`
	Revenue           float64   `json:"revenue"`
	TotalMargin       float64   `json:"totalMargin"`
	AvgMarginRate     float64   `json:"avgMarginRate"`
	ActivityCount     int64     `json:"activityCount"`
	FailedCount       int64     `json:"failedCount"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type DailyStatCreate struct {
	Date              string  `json:"date" db:"date" validate:"required,datetime=2006-01-02"`
	ProductCount      int64   `json:"productCount" db:"product_count" validate:"gte=0"`
	RegistrationCount int64   `json:"registrationCount" db:"registration_count" validate:"gte=0"`
	Revenue           float64 `json:"revenue" db:"revenue" validate:"gte=0"`
	TotalMargin       float64 `json:"totalMargin" db:"total_margin"`
	AvgMarginRate     float64 `json:"avgMarginRate" db:"avg_margin_rate"`
	ActivityCount     int64   `json:"activityCount" db:"activity_count" validate:"gte=0"`
	FailedCount       int64   `json:"failedCount" db:"failed_count" validate:"gte=0"`
}

type DailyStatUpdate struct {
	ProductCount      *int64   `json:"productCount,omitempty" db:"product_count" validate:"omitempty,gte=0"`
	RegistrationCount *int64   `json:"registrationCount,omitempty" db:"registration_count" validate:"omitempty,gte=0"`
	Revenue           *float64 `json:"revenue,omitempty" db:"revenue" validate:"omitempty,gte=0"`
	TotalMargin       *float64 `json:"totalMargin,omitempty" db:"total_margin"`
	AvgMarginRate     *float64 `json:"avgMarginRate,omitempty" db:"avg_margin_rate"`
	ActivityCount     *int64   `json:"activityCount,omitempty" db:"activity_count" validate:"omitempty,gte=0"`
	FailedCount       *int64   `json:"failedCount,omitempty" db:"failed_count" validate:"omitempty,gte=0"`
}

type DailyStatWhere struct {
	ID                *query.Filter[int64]     `json:"id,omitempty" db:"id"`
	Date              *query.StringFilter      `json:"date,omitempty" db:"date"`
	ProductCount      *query.Filter[int64]     `json:"productCount,omitempty" db:"product_count"`
	RegistrationCount *query.Filter[int64]     `json:"registrationCount,omitempty" db:"registration_count"`
	Revenue           *query.Filter[float64]   `json:"revenue,omitempty" db:"revenue"`
	TotalMargin       *query.Filter[float64]   `json:"totalMargin,omitempty" db:"total_margin"`
	AvgMarginRate     *query.Filter[float64]   `json:"avgMarginRate,omitempty" db:"avg_margin_rate"`
	ActivityCount     *query.Filter[int64]     `json:"activityCount,omitempty" db:"activity_count"`
	FailedCount       *query.Filter[int64]     `json:"failedCount,omitempty" db:"failed_count"`
	CreatedAt         *query.Filter[time.Time] `json:"createdAt,omitempty" db:"created_at"`
	AND               []DailyStatWhere         `json:"AND,omitempty" logic:"and"`
	OR                []DailyStatWhere         `json:"OR,omitempty" logic:"or"`
	NOT               []DailyStatWhere         `json:"NOT,omitempty" logic:"not"`
}
