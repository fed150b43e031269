package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// VIPTier is one level of the fixed membership ladder. MinSpent thresholds
// are strictly increasing across the table.
type VIPTier struct {
	Name            string  `json:"name" firestore:"name"`
	MinSpent        float64 `json:"minSpent" firestore:"min_spent"`
	DiscountPercent int     `json:"discountPercent" firestore:"discount_percent"`
	FreeShipping    bool    `json:"freeShipping" firestore:"free_shipping"`
	EarlyAccess     bool    `json:"earlyAccess" firestore:"early_access"`
	ExclusiveEvents bool    `json:"exclusiveEvents" firestore:"exclusive_events"`
	PersonalStylist bool    `json:"personalStylist" firestore:"personal_stylist"`
	PrioritySupport bool    `json:"prioritySupport" firestore:"priority_support"`
	BirthdayGift    bool    `json:"birthdayGift" firestore:"birthday_gift"`
	Color           string  `json:"color" firestore:"color"`
}

// VIPOffer is a promotion surfaced to a member. Auto-applied offers need no
// code at checkout.
type VIPOffer struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Code            string  `json:"code,omitempty"`
	DiscountPercent int     `json:"discountPercent,omitempty"`
	ValidUntil      string  `json:"validUntil,omitempty"`
	IsAutoApplied   bool    `json:"isAutoApplied"`
	MinPurchase     float64 `json:"minPurchase,omitempty"`
}

// VIPStats is a derived snapshot recomputed wholesale from lifetime spend.
// Individual fields are never mutated in place.
type VIPStats struct {
	TotalSpent           float64  `json:"totalSpent" firestore:"total_spent"`
	TotalSaved           float64  `json:"totalSaved" firestore:"total_saved"`
	ItemsPurchased       int      `json:"itemsPurchased" firestore:"items_purchased"`
	CurrentTier          *VIPTier `json:"currentTier" firestore:"current_tier"`
	NextTier             *VIPTier `json:"nextTier,omitempty" firestore:"next_tier,omitempty"`
	ProgressToNextTier   float64  `json:"progressToNextTier" firestore:"progress_to_next_tier"`
	MemberSince          string   `json:"memberSince" firestore:"member_since"`
	ExclusiveAccessCount int      `json:"exclusiveAccessCount" firestore:"exclusive_access_count"`
	ReferralCount        int      `json:"referralCount" firestore:"referral_count"`
}

var vipTiers = []VIPTier{
	{Name: "Bronze", MinSpent: 500, DiscountPercent: 10, FreeShipping: true, Color: "#CD7F32"},
	{Name: "Silver", MinSpent: 1000, DiscountPercent: 15, FreeShipping: true, EarlyAccess: true, PrioritySupport: true, Color: "#C0C0C0"},
	{Name: "Gold", MinSpent: 2500, DiscountPercent: 20, FreeShipping: true, EarlyAccess: true, ExclusiveEvents: true, PrioritySupport: true, BirthdayGift: true, Color: "#FFD700"},
	{Name: "Platinum", MinSpent: 5000, DiscountPercent: 25, FreeShipping: true, EarlyAccess: true, ExclusiveEvents: true, PersonalStylist: true, PrioritySupport: true, BirthdayGift: true, Color: "#E5E4E2"},
	{Name: "Diamond", MinSpent: 10000, DiscountPercent: 30, FreeShipping: true, EarlyAccess: true, ExclusiveEvents: true, PersonalStylist: true, PrioritySupport: true, BirthdayGift: true, Color: "#B9F2FF"},
}

// VIPTiers returns a copy of the tier table ordered by ascending MinSpent.
func VIPTiers() []VIPTier {
	tiers := make([]VIPTier, len(vipTiers))
	copy(tiers, vipTiers)
	return tiers
}

// TierForSpend returns the highest tier whose threshold the spend meets, or
// nil when spend is below the lowest threshold.
func TierForSpend(totalSpent float64) *VIPTier {
	for i := len(vipTiers) - 1; i >= 0; i-- {
		if totalSpent >= vipTiers[i].MinSpent {
			tier := vipTiers[i]
			return &tier
		}
	}
	return nil
}

// NextTierAfter returns the tier immediately above current, the lowest tier
// when current is nil, and nil when current is already the top tier.
func NextTierAfter(current *VIPTier) *VIPTier {
	if current == nil {
		tier := vipTiers[0]
		return &tier
	}
	for i, tier := range vipTiers {
		if tier.Name == current.Name {
			if i+1 < len(vipTiers) {
				next := vipTiers[i+1]
				return &next
			}
			return nil
		}
	}
	return nil
}

// ProgressToNextTier returns how far the spend has advanced from the current
// tier towards the next one, as a percentage clamped to [0,100]. It is 100
// at the top tier and 0 below the lowest tier.
func ProgressToNextTier(totalSpent float64) float64 {
	current := TierForSpend(totalSpent)
	next := NextTierAfter(current)
	if next == nil {
		return 100
	}
	base := 0.0
	if current != nil {
		base = current.MinSpent
	}
	progress := (totalSpent - base) / (next.MinSpent - base) * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// ApplyVIPDiscount returns the subtotal after the tier discount; identity
// when no tier applies.
func ApplyVIPDiscount(tier *VIPTier, subtotal float64) float64 {
	if tier == nil {
		return subtotal
	}
	return subtotal - subtotal*float64(tier.DiscountPercent)/100
}

// VIPBenefits lists the human-readable benefits for the tier. The discount
// line always leads; the rest are gated on the tier flags.
func VIPBenefits(tier *VIPTier) []string {
	if tier == nil {
		return nil
	}

	benefits := []string{
		fmt.Sprintf("%d%% discount on all items", tier.DiscountPercent),
	}
	if tier.FreeShipping {
		benefits = append(benefits, "Free shipping on all orders")
	}
	if tier.EarlyAccess {
		benefits = append(benefits, "48-hour early access to new collections")
	}
	if tier.ExclusiveEvents {
		benefits = append(benefits, "Exclusive event invitations")
	}
	if tier.PersonalStylist {
		benefits = append(benefits, "Personal stylist consultations")
	}
	if tier.PrioritySupport {
		benefits = append(benefits, "Priority customer support")
	}
	if tier.BirthdayGift {
		benefits = append(benefits, "Annual birthday gift")
	}
	return benefits
}

// VIPOffersForTier builds the offer list for the tier. The seasonal winter
// offer only appears in December and January.
func VIPOffersForTier(tier *VIPTier, now time.Time) []VIPOffer {
	if tier == nil {
		return nil
	}

	offers := []VIPOffer{
		{
			ID:              "vip_discount",
			Title:           fmt.Sprintf("%d%% OFF", tier.DiscountPercent),
			Description:     fmt.Sprintf("Your %s tier exclusive discount", tier.Name),
			Code:            "VIP" + strings.ToUpper(tier.Name),
			DiscountPercent: tier.DiscountPercent,
			IsAutoApplied:   true,
		},
	}

	if tier.FreeShipping {
		offers = append(offers, VIPOffer{
			ID:            "free_shipping",
			Title:         "FREE SHIPPING",
			Description:   "On all orders, no minimum",
			IsAutoApplied: true,
		})
	}
	if tier.EarlyAccess {
		offers = append(offers, VIPOffer{
			ID:            "early_access",
			Title:         "EARLY ACCESS",
			Description:   "Shop new collections 48 hours early",
			IsAutoApplied: true,
		})
	}
	if tier.ExclusiveEvents {
		offers = append(offers, VIPOffer{
			ID:          "exclusive_events",
			Title:       "EXCLUSIVE EVENTS",
			Description: "Invitations to VIP-only fashion shows",
		})
	}
	if tier.PersonalStylist {
		offers = append(offers, VIPOffer{
			ID:          "personal_stylist",
			Title:       "PERSONAL STYLIST",
			Description: "Complimentary styling consultations",
		})
	}

	if month := now.Month(); month == time.December || month == time.January {
		offers = append(offers, VIPOffer{
			ID:              "seasonal_bonus",
			Title:           "SEASONAL BONUS",
			Description:     "Extra 10% off winter collection",
			Code:            "WINTER10",
			DiscountPercent: 10,
			ValidUntil:      "2025-02-01",
		})
	}

	return offers
}

// ComputeVIPStats derives a fresh stats snapshot from lifetime spend.
// referralCount comes from the injected random source (an estimate in the
// absence of a real referral program).
func ComputeVIPStats(totalSpent float64, memberSince string, randInt func(n int) int) VIPStats {
	current := TierForSpend(totalSpent)
	next := NextTierAfter(current)

	referrals := 0
	if randInt != nil {
		referrals = randInt(5)
	}

	return VIPStats{
		TotalSpent:           totalSpent,
		TotalSaved:           math.Floor(totalSpent * 0.3),
		ItemsPurchased:       int(math.Floor(totalSpent / 250)),
		CurrentTier:          current,
		NextTier:             next,
		ProgressToNextTier:   ProgressToNextTier(totalSpent),
		MemberSince:          memberSince,
		ExclusiveAccessCount: int(math.Floor(totalSpent / 500)),
		ReferralCount:        referrals,
	}
}
