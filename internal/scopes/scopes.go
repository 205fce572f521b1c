package scopes

import "gorm.io/gorm"

// Active filters out soft-deleted rows. Every listing/query path goes
// through this scope; inactive rows stay in the table for history.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}
