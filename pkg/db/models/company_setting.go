package models

import "time"

// CompanySetting is a key/value configuration row; public rows are exposed to the storefront.
type CompanySetting struct {
	Key         string    `gorm:"column:key;primaryKey"`
	Value       string    `gorm:"column:value;not null;default:''"`
	IsPublic    bool      `gorm:"column:is_public;not null;default:false"`
	Description *string   `gorm:"column:description"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
