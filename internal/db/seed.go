package db

import (
	"log"

	"gorm.io/gorm"

	"github.com/timurkhal/dealspot/internal/models"
)

var defaultCategories = []string{
	"Food & Drinks",
	"Electronics",
	"Clothing",
	"Entertainment",
	"Services",
	"Other",
}

// SeedCategories fills the categories table on first run so a fresh install
// has something to post into. A non-empty table is left alone.
func SeedCategories(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, name := range defaultCategories {
		if err := gdb.Create(&models.Category{Name: name}).Error; err != nil {
			return err
		}
	}
	log.Printf("Seeded %d default categories", len(defaultCategories))
	return nil
}
