// internal/service/inventory/domain/adjustment.go
package domain

// AdjustmentOutcome 是对单个订单行项目做库存调整的结果。
// Oversold 为 true 表示本次扣减被钳制到 0（请求数量超过了当时的库存），
// 这是需要人工对账的信号，但调整本身是成功的。
type AdjustmentOutcome struct {
	ProductID string
	Quantity  int
	Oversold  bool
	Err       error
}

// AdjustmentReport 汇总一个订单全部行项目的调整结果。
// 单个行项目失败不会中断其余行项目，也不会回滚已经生效的调整，
// 这是一个偏向"尽量推进"的取舍：调用方根据 OK() 决定是否标记订单
// 进入人工库存对账。
type AdjustmentReport struct {
	OrderID string
	Items   []AdjustmentOutcome
}

// OK 当且仅当所有行项目都调整成功时为 true。
func (r *AdjustmentReport) OK() bool {
	for _, item := range r.Items {
		if item.Err != nil {
			return false
		}
	}
	return true
}

// Failed 返回调整失败的行项目。
func (r *AdjustmentReport) Failed() []AdjustmentOutcome {
	var failed []AdjustmentOutcome
	for _, item := range r.Items {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}
