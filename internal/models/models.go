package models

import (
	"time"
)

// Unique index names follow uq_<table>_<column>; repo.classify relies on it to
// name the column in a late unique violation. References are RESTRICT: a role,
// category or user that is still referenced cannot be deleted.

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"             json:"id"`
	Name string `gorm:"uniqueIndex:uq_roles_name;not null"  json:"name"`
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"               json:"id"`
	Username     string    `gorm:"uniqueIndex:uq_users_username;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex:uq_users_email;not null"    json:"email"`
	PasswordHash string    `gorm:"not null"                               json:"-"`
	RoleID       uint      `gorm:"index;not null"                         json:"roleId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Role *Role `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"                json:"id"`
	Name string `gorm:"uniqueIndex:uq_categories_name;not null" json:"name"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"                 json:"id"`
	Name        string    `gorm:"not null"                                 json:"name"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	CategoryID  uint      `gorm:"index;not null"                           json:"categoryId"`
	Barcode     string    `gorm:"uniqueIndex:uq_products_barcode;not null" json:"barcode"`
	CreatedBy   uint      `gorm:"index;not null"                           json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Creator  *User     `gorm:"foreignKey:CreatedBy;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"  json:"-"`
}
