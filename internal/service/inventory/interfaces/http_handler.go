// internal/service/inventory/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"luzimarket/internal/service/inventory/application"
	"luzimarket/internal/service/inventory/domain"
)

// InventoryHandler 封装了 inventory 服务的 HTTP 处理器
type InventoryHandler struct {
	validator    *application.CartStockValidator
	reservations *application.ReservationManager
	orchestrator *application.PaymentOrchestrator
	reporter     *application.LowStockReporter
}

// NewInventoryHandler 创建一个新的 HTTP 处理器实例
func NewInventoryHandler(
	validator *application.CartStockValidator,
	reservations *application.ReservationManager,
	orchestrator *application.PaymentOrchestrator,
	reporter *application.LowStockReporter,
) *InventoryHandler {
	return &InventoryHandler{
		validator:    validator,
		reservations: reservations,
		orchestrator: orchestrator,
		reporter:     reporter,
	}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *InventoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/checkout/validate", h.handleValidate)
	mux.HandleFunc("/checkout/reserve", h.handleReserve)
	mux.HandleFunc("/checkout/release", h.handleRelease)
	mux.HandleFunc("/checkout/available", h.handleAvailable)
	mux.HandleFunc("/internal/payment-webhook", h.handlePaymentWebhook)
	mux.HandleFunc("/admin/low-stock", h.handleLowStock)
}

// handleValidate 只读校验购物车库存，缺口整体返回给前端渲染。
func (h *InventoryHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	var req application.ValidateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.validator.Validate(ctx, application.ToCartItems(req.Items))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, application.ValidationResponse{
		IsValid:    result.IsValid,
		Shortfalls: application.ToShortfallResponses(result.Shortfalls),
	})
}

// handleReserve 在创建支付会话之前为结算会话锁定库存。
// 业务缺货返回 409 和缺口列表；基础设施失败返回 503，
// 前端提示"暂时无法锁定库存，请重试"。
func (h *InventoryHandler) handleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	var req application.ReserveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	typ := domain.ReservationTypeCheckout
	if req.Type == string(domain.ReservationTypeCart) {
		typ = domain.ReservationTypeCart
	}

	result, err := h.reservations.Reserve(
		ctx,
		application.ToCartItems(req.Items),
		req.UserID,
		req.SessionID,
		typ,
		time.Duration(req.TTLMinutes)*time.Minute,
	)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidReservation), errors.Is(err, domain.ErrEmptyCart):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "unable to hold stock, please retry", http.StatusServiceUnavailable)
		}
		return
	}

	if !result.OK {
		writeJSON(w, http.StatusConflict, application.ValidationResponse{
			IsValid:    false,
			Shortfalls: application.ToShortfallResponses(result.Shortfalls),
		})
		return
	}

	writeJSON(w, http.StatusOK, application.ReserveStockResponse{
		SessionID:      result.SessionID,
		ReservationIDs: result.ReservationIDs,
		ExpiresAt:      result.ExpiresAt.Format(time.RFC3339),
	})
}

// handleRelease 释放结算会话的预占。幂等。
func (h *InventoryHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	var req application.ReleaseStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	if err := h.reservations.Release(ctx, req.SessionID, req.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleAvailable 查询单个商品的可用库存（台账 - 生效预占）。
func (h *InventoryHandler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	productID := r.URL.Query().Get("productId")
	if productID == "" {
		http.Error(w, "productId is required", http.StatusBadRequest)
		return
	}

	available, err := h.reservations.GetAvailableStock(ctx, productID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"productId":      productID,
		"availableStock": available,
	})
}

// handlePaymentWebhook 是支付事件的同步入口（异步入口是 Kafka 消费者）。
// 签名验证在网关层完成，这里只处理业务语义。
func (h *InventoryHandler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	var event domain.PaymentEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if event.OrderID == "" {
		http.Error(w, "orderId is required", http.StatusBadRequest)
		return
	}

	if err := h.orchestrator.Handle(ctx, &event); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleLowStock 返回低库存报表。threshold 缺省使用配置值。
func (h *InventoryHandler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	threshold := 0
	if v := r.URL.Query().Get("threshold"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid threshold", http.StatusBadRequest)
			return
		}
		threshold = parsed
	}

	entries, err := h.reporter.Report(ctx, threshold)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]application.LowStockItemResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, application.LowStockItemResponse{
			ProductID:    entry.Product.ID,
			ProductName:  entry.Product.Name,
			Stock:        entry.Product.Stock,
			VendorID:     entry.Product.VendorID,
			VendorName:   entry.VendorName,
			CategoryID:   entry.Product.CategoryID,
			CategoryName: entry.CategoryName,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func extractContext(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeServiceError 把错误映射到 HTTP 状态码。
// 走到这里的都是基础设施错误，业务结果不会以 error 形式出现。
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrInvalidReservation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "temporary failure, please try again", http.StatusServiceUnavailable)
	}
}
