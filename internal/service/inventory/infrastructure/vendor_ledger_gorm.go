// internal/service/inventory/infrastructure/vendor_ledger_gorm.go
package infrastructure

import (
	"context"

	"gorm.io/gorm"

	"luzimarket/internal/service/inventory/domain"
)

// GormVendorLedger 实现了 port.VendorLedger。
// 记账和库存回补用同一种单条加法表达式，由数据库原子完成。
type GormVendorLedger struct {
	db *gorm.DB
}

func NewGormVendorLedger(db *gorm.DB) *GormVendorLedger {
	return &GormVendorLedger{db: db}
}

func (l *GormVendorLedger) CreditBalance(ctx context.Context, vendorID string, amount float64) error {
	result := l.db.WithContext(ctx).Model(&VendorModel{}).
		Where("id = ?", vendorID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrVendorNotFound
	}
	return nil
}
