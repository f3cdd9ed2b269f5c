package registry

import (
	"context"
	"sort"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// Permission identifiers declared by tools.
const (
	PermCustomersRead   = "customers:read"
	PermCustomersWrite  = "customers:write"
	PermQuotesRead      = "quotes:read"
	PermQuotesWrite     = "quotes:write"
	PermWorkOrdersRead  = "workorders:read"
	PermWorkOrdersWrite = "workorders:write"
	PermReportsView     = "reports:view"
	PermPaymentsCharge  = "payments:charge"
)

// tierGrants lists what each tier adds on top of the tier below it. The
// effective permission set of a tier is the union of its own grants and every
// lower tier's, which keeps FREE ⊆ STARTER ⊆ PROFESSIONAL ⊆ ENTERPRISE an
// explicit, testable construction rather than an enum-ordering accident.
var tierGrants = map[model.Tier][]string{
	model.TierFree: {
		PermCustomersRead,
		PermQuotesRead,
	},
	model.TierStarter: {
		PermCustomersWrite,
		PermQuotesWrite,
		PermWorkOrdersRead,
	},
	model.TierProfessional: {
		PermWorkOrdersWrite,
		PermReportsView,
	},
	model.TierEnterprise: {
		PermPaymentsCharge,
	},
}

// tierPermissions is the lookup table built once at startup.
var tierPermissions = buildTierPermissions()

func buildTierPermissions() map[model.Tier]map[string]bool {
	table := make(map[model.Tier]map[string]bool, len(tierGrants))
	accumulated := map[string]bool{}
	for _, tier := range model.Tiers() {
		for _, perm := range tierGrants[tier] {
			accumulated[perm] = true
		}
		set := make(map[string]bool, len(accumulated))
		for perm := range accumulated {
			set[perm] = true
		}
		table[tier] = set
	}
	return table
}

// PermissionsFor returns the sorted permission identifiers of a tier.
func PermissionsFor(tier model.Tier) []string {
	set := tierPermissions[tier]
	out := make([]string, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}

// TierHas reports whether the tier's permission set includes the permission.
func TierHas(tier model.Tier, permission string) bool {
	return tierPermissions[tier][permission]
}

// PermissionChecker resolves a caller's tier and answers permission checks.
// A caller with no subscription record defaults to FREE.
type PermissionChecker struct {
	subscriptions model.SubscriptionStore
}

// NewPermissionChecker builds a checker. subscriptions may be nil, in which
// case every caller resolves to FREE.
func NewPermissionChecker(subscriptions model.SubscriptionStore) *PermissionChecker {
	return &PermissionChecker{subscriptions: subscriptions}
}

// TierFor resolves the caller's tier, defaulting to FREE.
func (c *PermissionChecker) TierFor(ctx context.Context, userID string) (model.Tier, error) {
	if c.subscriptions == nil {
		return model.TierFree, nil
	}
	tier, found, err := c.subscriptions.GetTier(ctx, userID)
	if err != nil {
		return model.TierFree, err
	}
	if !found {
		return model.TierFree, nil
	}
	return tier, nil
}

// HasAll reports whether the caller's tier includes every listed permission.
// An empty list always passes.
func (c *PermissionChecker) HasAll(ctx context.Context, userID string, permissions []string) (bool, error) {
	if len(permissions) == 0 {
		return true, nil
	}
	tier, err := c.TierFor(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, perm := range permissions {
		if !TierHas(tier, perm) {
			return false, nil
		}
	}
	return true, nil
}
