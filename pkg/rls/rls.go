package rls

import (
	"fmt"

	"gorm.io/gorm"
)

// WithTenant pins the current business onto the transaction for Postgres
// row-level security policies. SET LOCAL only lives until commit/rollback,
// so it must run inside the transaction it protects. Other dialects have no
// RLS; the call is a no-op there.
func WithTenant(tx *gorm.DB, businessID int64) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec(
		"SET LOCAL app.current_business_id = ?",
		fmt.Sprintf("%d", businessID),
	).Error
}
