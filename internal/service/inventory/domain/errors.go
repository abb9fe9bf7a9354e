// internal/service/inventory/domain/errors.go
package domain

import "errors"

var (
	// ErrProductNotFound 表示商品不存在或已下架。
	// 在校验流程中它被转换为"可用库存为 0"的数据结果，而不是向上抛出。
	ErrProductNotFound = errors.New("product not found or inactive")

	// ErrInvalidReservation 表示预占请求本身不合法（空会话、非正数量等）。
	ErrInvalidReservation = errors.New("invalid stock reservation request")

	// ErrEmptyCart 表示校验/预占请求不包含任何条目。
	ErrEmptyCart = errors.New("cart contains no items")

	// ErrVendorNotFound 表示商家不存在，记账无法进行。
	ErrVendorNotFound = errors.New("vendor not found")
)
