package model

// Tier is a subscription plan level. Each tier's permission set is a strict
// superset of the tier below it; ENTERPRISE holds every defined permission.
type Tier string

const (
	TierFree         Tier = "FREE"
	TierStarter      Tier = "STARTER"
	TierProfessional Tier = "PROFESSIONAL"
	TierEnterprise   Tier = "ENTERPRISE"
)

// Tiers lists every tier in ascending order.
func Tiers() []Tier {
	return []Tier{TierFree, TierStarter, TierProfessional, TierEnterprise}
}
