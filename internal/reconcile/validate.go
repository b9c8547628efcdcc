package reconcile

import (
	"fmt"
	"sync"
)

// ValidationError carries a user-facing message for a failed cross-field
// invariant. Validation never auto-corrects input - the caller re-surfaces
// the message and the user fixes the values.
type ValidationError struct {
	Domain  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Rule validates the full edited leaf map for a domain. A nil return means
// the values pass.
type Rule func(values map[string]interface{}) *ValidationError

// Validator dispatches domain-specific invariant checks by domain name.
// Rules are registered once at startup; domains without a rule always pass.
type Validator struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewValidator returns a validator pre-loaded with the standard rule set.
func NewValidator() *Validator {
	v := &Validator{rules: make(map[string]Rule)}
	v.Register("capital_allocation", validateCapitalAllocation)
	return v
}

// Register installs (or replaces) the rule for a domain.
func (v *Validator) Register(domain string, rule Rule) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rules[domain] = rule
}

// Validate runs the rule for a domain against the edited values. Stateless
// and single-shot; invoked immediately before a save.
func (v *Validator) Validate(domain string, values map[string]interface{}) *ValidationError {
	v.mu.RLock()
	rule, ok := v.rules[domain]
	v.mu.RUnlock()
	if !ok {
		return nil
	}
	return rule(values)
}

// capitalAllocationFields are the four per-mode percentage fields that must
// sum to 100.
var capitalAllocationFields = []string{
	"ultra_fast_percent",
	"scalp_percent",
	"swing_percent",
	"position_percent",
}

// validateCapitalAllocation requires the four mode percentages to total 100%,
// with a 1% band to absorb floating-point and rounding slop. Missing or
// non-numeric fields count as 0.
func validateCapitalAllocation(values map[string]interface{}) *ValidationError {
	total := 0.0
	for _, field := range capitalAllocationFields {
		total += NumberValue(values[field])
	}
	if total < 99.0 || total > 101.0 {
		return &ValidationError{
			Domain:  "capital_allocation",
			Message: fmt.Sprintf("Total allocation must be 100%%. Current total: %.1f%%", total),
		}
	}
	return nil
}
