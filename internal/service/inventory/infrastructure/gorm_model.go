// internal/service/inventory/infrastructure/gorm_model.go
package infrastructure

import "time"

// ProductModel 对应数据库中的 products 表
type ProductModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	Name       string
	VendorID   string `gorm:"size:36;index"`
	CategoryID string `gorm:"size:36;index"`
	Stock      int    `gorm:"not null;default:0"`
	IsActive   bool   `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// 关联关系
	Vendor   VendorModel   `gorm:"foreignKey:VendorID"`
	Category CategoryModel `gorm:"foreignKey:CategoryID"`
}

// TableName 指定 GORM 应该使用的表名
func (ProductModel) TableName() string {
	return "products"
}

// StockReservationModel 对应数据库中的 stock_reservations 表
type StockReservationModel struct {
	ID              string `gorm:"primaryKey;size:36"`
	ProductID       string `gorm:"size:36;index"`
	Quantity        int    `gorm:"not null"`
	UserID          string `gorm:"size:64"`
	SessionID       string `gorm:"size:64;index"`
	ReservationType string `gorm:"size:16"`
	ExpiresAt       time.Time  `gorm:"index"`
	ReleasedAt      *time.Time // NULL 表示尚未释放
	CreatedAt       time.Time
}

// TableName 指定 GORM 应该使用的表名
func (StockReservationModel) TableName() string {
	return "stock_reservations"
}

// OrderItemModel 对应数据库中的 order_items 表（本服务只读）
type OrderItemModel struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   string `gorm:"size:36;index"`
	ProductID string `gorm:"size:36"`
	Quantity  int
	Price     float64 `gorm:"type:decimal(10,2)"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderItemModel) TableName() string {
	return "order_items"
}

// VendorModel 对应数据库中的 vendors 表（只用到名字和余额）
type VendorModel struct {
	ID      string `gorm:"primaryKey;size:36"`
	Name    string
	Balance float64 `gorm:"type:decimal(12,2)"`
}

// TableName 指定 GORM 应该使用的表名
func (VendorModel) TableName() string {
	return "vendors"
}

// CategoryModel 对应数据库中的 categories 表
type CategoryModel struct {
	ID   string `gorm:"primaryKey;size:36"`
	Name string
}

// TableName 指定 GORM 应该使用的表名
func (CategoryModel) TableName() string {
	return "categories"
}
