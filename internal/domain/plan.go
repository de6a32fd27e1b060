// Package domain contains core business types and interfaces.
//
// This file defines subscription plans and their monthly upload limits.
package domain

// Plan represents a named subscription tier.
//
// Plans are stored as strings on the user row (the payment layer writes
// whatever the provider reported), so parsing is total: anything we do not
// recognize collapses to PlanFree. Falling back to the most restrictive
// limit means a garbled or missing plan name can never grant an oversized
// quota.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// planLimits maps each plan to its monthly upload limit.
var planLimits = map[Plan]int{
	PlanFree:       3,
	PlanBasic:      15,
	PlanPremium:    50,
	PlanEnterprise: 200,
}

// ParsePlan converts a stored plan name into a Plan.
// Unknown or empty names parse to PlanFree.
func ParsePlan(name string) Plan {
	switch Plan(name) {
	case PlanBasic:
		return PlanBasic
	case PlanPremium:
		return PlanPremium
	case PlanEnterprise:
		return PlanEnterprise
	default:
		return PlanFree
	}
}

// LimitFor returns the monthly upload limit for a plan.
func LimitFor(plan Plan) int {
	if limit, ok := planLimits[plan]; ok {
		return limit
	}
	return planLimits[PlanFree]
}

// MonthlyLimit returns the monthly upload limit for a raw plan name.
// It never fails; unrecognized names get the free-tier limit.
func MonthlyLimit(planName string) int {
	return LimitFor(ParsePlan(planName))
}

// ValidPlanName reports whether name is one of the purchasable plans.
// Used by the payment layer to reject checkout requests for made-up tiers.
func ValidPlanName(name string) bool {
	switch Plan(name) {
	case PlanFree, PlanBasic, PlanPremium, PlanEnterprise:
		return true
	default:
		return false
	}
}

// PlanPrice returns the monthly price for a plan in the minor unit of the
// billing currency (e.g. cents). Free is zero and cannot be checked out.
func PlanPrice(plan Plan) int64 {
	switch plan {
	case PlanBasic:
		return 500_00
	case PlanPremium:
		return 1500_00
	case PlanEnterprise:
		return 5000_00
	default:
		return 0
	}
}
