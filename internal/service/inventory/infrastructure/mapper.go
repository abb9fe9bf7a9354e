// internal/service/inventory/infrastructure/mapper.go
package infrastructure

import (
	"luzimarket/internal/service/inventory/domain"
)

// ToDomainProduct 将数据库模型转换为领域模型
func ToDomainProduct(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}
	return &domain.Product{
		ID:         model.ID,
		Name:       model.Name,
		VendorID:   model.VendorID,
		CategoryID: model.CategoryID,
		Stock:      model.Stock,
		IsActive:   model.IsActive,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

// ToDomainReservation 将数据库模型转换为领域模型
func ToDomainReservation(model *StockReservationModel) *domain.StockReservation {
	if model == nil {
		return nil
	}
	return &domain.StockReservation{
		ID:         model.ID,
		ProductID:  model.ProductID,
		Quantity:   model.Quantity,
		UserID:     model.UserID,
		SessionID:  model.SessionID,
		Type:       domain.ReservationType(model.ReservationType),
		ExpiresAt:  model.ExpiresAt,
		ReleasedAt: model.ReleasedAt,
		CreatedAt:  model.CreatedAt,
	}
}

// FromDomainReservation 将领域模型转换为数据库模型 (用于插入)
func FromDomainReservation(dmn *domain.StockReservation) *StockReservationModel {
	if dmn == nil {
		return nil
	}
	return &StockReservationModel{
		ID:              dmn.ID,
		ProductID:       dmn.ProductID,
		Quantity:        dmn.Quantity,
		UserID:          dmn.UserID,
		SessionID:       dmn.SessionID,
		ReservationType: string(dmn.Type),
		ExpiresAt:       dmn.ExpiresAt,
		ReleasedAt:      dmn.ReleasedAt,
		CreatedAt:       dmn.CreatedAt,
	}
}

// ToDomainOrderItem 将数据库模型转换为领域模型
func ToDomainOrderItem(model *OrderItemModel) *domain.OrderItem {
	if model == nil {
		return nil
	}
	return &domain.OrderItem{
		OrderID:   model.OrderID,
		ProductID: model.ProductID,
		Quantity:  model.Quantity,
		Price:     model.Price,
	}
}
