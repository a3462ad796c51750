package models

import "gorm.io/gorm"

// Activity is owned by another module; this service only counts rows.
type Activity struct {
	gorm.Model
	Title string
}
