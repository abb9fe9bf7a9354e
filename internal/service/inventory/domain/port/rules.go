// internal/service/inventory/domain/port/rules.go
package port

// AlertRuleEngine 评估低库存告警规则。
// fact 是规则可见的字段集合（stock、threshold、is_active、vendor_id、category_id）。
type AlertRuleEngine interface {
	Evaluate(rule string, fact map[string]interface{}) (bool, error)
}
