// internal/service/inventory/infrastructure/rule/cel_rules_engine.go
package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELRuleEngineAdapter 是 port.AlertRuleEngine 接口的一个具体实现。
// 它把低库存告警规则表达为 CEL 表达式，例如:
//
//	is_active && stock <= threshold
//	is_active && stock == 0 && vendor_id == "vendor-handmade"
//
// 这是一个典型的适配器模式应用，把第三方规则引擎的 API 适配到领域接口。
type CELRuleEngineAdapter struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program // 已编译规则的缓存
}

// NewCELRuleEngineAdapter 创建一个新的规则引擎适配器实例。
// 规则可见的变量在这里一次性声明。
func NewCELRuleEngineAdapter() (*CELRuleEngineAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("stock", cel.IntType),
		cel.Variable("threshold", cel.IntType),
		cel.Variable("is_active", cel.BoolType),
		cel.Variable("vendor_id", cel.StringType),
		cel.Variable("category_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELRuleEngineAdapter{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 实现了 port.AlertRuleEngine 接口。
func (a *CELRuleEngineAdapter) Evaluate(rule string, fact map[string]interface{}) (bool, error) {
	program, err := a.compile(rule)
	if err != nil {
		return false, err
	}

	out, _, err := program.Eval(fact)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rule %q: %w", rule, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q did not evaluate to a boolean (got %T)", rule, out.Value())
	}
	return result, nil
}

// compile 编译并缓存规则。同一条规则只编译一次。
func (a *CELRuleEngineAdapter) compile(rule string) (cel.Program, error) {
	a.mu.RLock()
	program, ok := a.programs[rule]
	a.mu.RUnlock()
	if ok {
		return program, nil
	}

	ast, issues := a.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		// 规则定义本身可能存在语法错误
		return nil, fmt.Errorf("invalid alert rule %q: %w", rule, issues.Err())
	}

	program, err := a.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program for rule %q: %w", rule, err)
	}

	a.mu.Lock()
	a.programs[rule] = program
	a.mu.Unlock()
	return program, nil
}
