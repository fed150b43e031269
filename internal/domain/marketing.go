package domain

// MarketingConfig is the full promotional configuration: automation flows,
// conversion boosters, and the luxury drop strategy. It is replaced and
// persisted wholesale; there is no partial merge.
type MarketingConfig struct {
	KlaviyoIntegration    bool `json:"klaviyoIntegration" firestore:"klaviyo_integration"`
	PostscriptIntegration bool `json:"postscriptIntegration" firestore:"postscript_integration"`

	AbandonedCartFlow AbandonedCartFlow `json:"abandonedCartFlow" firestore:"abandoned_cart_flow"`
	PrePurchaseFlow   PrePurchaseFlow   `json:"prePurchaseFlow" firestore:"pre_purchase_flow"`
	PostPurchaseFlow  PostPurchaseFlow  `json:"postPurchaseFlow" firestore:"post_purchase_flow"`
	WinBackFlow       WinBackFlow       `json:"winBackFlow" firestore:"win_back_flow"`

	FirstOrderDiscount    FirstOrderDiscount    `json:"firstOrderDiscount" firestore:"first_order_discount"`
	FreeShippingThreshold FreeShippingThreshold `json:"freeShippingThreshold" firestore:"free_shipping_threshold"`
	ScarcityMessages      ScarcityMessages      `json:"scarcityMessages" firestore:"scarcity_messages"`
	VIPSegmentation       VIPSegmentation       `json:"vipSegmentation" firestore:"vip_segmentation"`
	LuxuryStrategy        LuxuryStrategy        `json:"luxuryStrategy" firestore:"luxury_strategy"`
}

// AbandonedCartFlow times the recovery emails and SMS (hours after
// abandonment) and carries the copy used in them.
type AbandonedCartFlow struct {
	Enabled         bool     `json:"enabled" firestore:"enabled"`
	EmailTiming     []int    `json:"emailTiming" firestore:"email_timing"`
	SMSTiming       []int    `json:"smsTiming" firestore:"sms_timing"`
	UrgencyMessages []string `json:"urgencyMessages" firestore:"urgency_messages"`
	DiscountOffers  []string `json:"discountOffers" firestore:"discount_offers"`
}

// PrePurchaseFlow holds the welcome-series copy.
type PrePurchaseFlow struct {
	Enabled        bool     `json:"enabled" firestore:"enabled"`
	WelcomeSeries  []string `json:"welcomeSeries" firestore:"welcome_series"`
	BrandStory     string   `json:"brandStory" firestore:"brand_story"`
	QualityPromise string   `json:"qualityPromise" firestore:"quality_promise"`
	StylingIdeas   []string `json:"stylingIdeas" firestore:"styling_ideas"`
}

// PostPurchaseFlow holds the order follow-up copy.
type PostPurchaseFlow struct {
	Enabled         bool     `json:"enabled" firestore:"enabled"`
	ThankYouMessage string   `json:"thankYouMessage" firestore:"thank_you_message"`
	DeliveryInfo    string   `json:"deliveryInfo" firestore:"delivery_info"`
	StylingTips     []string `json:"stylingTips" firestore:"styling_tips"`
	ReviewRequest   string   `json:"reviewRequest" firestore:"review_request"`
}

// WinBackFlow re-engages customers inactive for InactivityDays.
type WinBackFlow struct {
	Enabled        bool   `json:"enabled" firestore:"enabled"`
	InactivityDays int    `json:"inactivityDays" firestore:"inactivity_days"`
	ExclusiveOffer string `json:"exclusiveOffer" firestore:"exclusive_offer"`
}

// FirstOrderDiscount configures the signup popup offer.
type FirstOrderDiscount struct {
	Enabled     bool `json:"enabled" firestore:"enabled"`
	Percentage  int  `json:"percentage" firestore:"percentage"`
	PopupTiming int  `json:"popupTiming" firestore:"popup_timing"`
}

// FreeShippingThreshold gates free shipping on order value.
type FreeShippingThreshold struct {
	Enabled bool    `json:"enabled" firestore:"enabled"`
	Amount  float64 `json:"amount" firestore:"amount"`
}

// ScarcityMessages drives low-stock alerts. Messages may contain a {stock}
// placeholder substituted at alert time.
type ScarcityMessages struct {
	Enabled           bool     `json:"enabled" firestore:"enabled"`
	LowStockThreshold int      `json:"lowStockThreshold" firestore:"low_stock_threshold"`
	Messages          []string `json:"messages" firestore:"messages"`
}

// VIPSegmentation marks customers as VIP once lifetime spend crosses the
// threshold.
type VIPSegmentation struct {
	Enabled           bool     `json:"enabled" firestore:"enabled"`
	SpendingThreshold float64  `json:"spendingThreshold" firestore:"spending_threshold"`
	Benefits          []string `json:"benefits" firestore:"benefits"`
}

// LuxuryStrategy parameterises the limited-drop release model.
type LuxuryStrategy struct {
	DropStrategy       string          `json:"dropStrategy" firestore:"drop_strategy"`
	MaxPiecesPerDrop   int             `json:"maxPiecesPerDrop" firestore:"max_pieces_per_drop"`
	AnticipationPeriod int             `json:"anticipationPeriod" firestore:"anticipation_period"`
	ExclusiveAccess    ExclusiveAccess `json:"exclusiveAccess" firestore:"exclusive_access"`
}

// ExclusiveAccess grants members a head start and a member price on drops.
type ExclusiveAccess struct {
	Enabled          bool `json:"enabled" firestore:"enabled"`
	EarlyAccessHours int  `json:"earlyAccessHours" firestore:"early_access_hours"`
	MemberDiscount   int  `json:"memberDiscount" firestore:"member_discount"`
}

// DefaultWaitlistSeed is the starting member count presented before any
// signup is recorded.
const DefaultWaitlistSeed int64 = 3247

// DefaultMarketingConfig returns the built-in configuration used until an
// operator replaces it.
func DefaultMarketingConfig() MarketingConfig {
	return MarketingConfig{
		KlaviyoIntegration:    true,
		PostscriptIntegration: true,

		AbandonedCartFlow: AbandonedCartFlow{
			Enabled:     true,
			EmailTiming: []int{1, 24},
			SMSTiming:   []int{2, 48},
			UrgencyMessages: []string{
				"Your exclusive pieces are waiting...",
				"Only a few left in stock - secure yours now",
				"Final reminder: Your cart expires in 2 hours",
			},
			DiscountOffers: []string{
				"Complete your order and save 10%",
				"Exclusive 15% off - today only",
				"Final chance: 20% off your cart",
			},
		},

		PrePurchaseFlow: PrePurchaseFlow{
			Enabled: true,
			WelcomeSeries: []string{
				"Welcome to YÈMALÍN - Where Luxury Meets Scarcity",
				"The Art of Genuine Exclusivity",
				"Your Journey to Elite Fashion Begins",
			},
			BrandStory:     "Born from the belief that true luxury lies in scarcity, YÈMALÍN creates pieces that define exclusivity.",
			QualityPromise: "Every piece is crafted with meticulous attention to detail using only the finest materials.",
			StylingIdeas: []string{
				"Minimalist Luxury: Less is More",
				"Timeless Pieces for Modern Icons",
				"Building Your Capsule Wardrobe",
			},
		},

		PostPurchaseFlow: PostPurchaseFlow{
			Enabled:         true,
			ThankYouMessage: "Welcome to the exclusive circle. Your piece is being prepared with care.",
			DeliveryInfo:    "Your order will arrive in premium packaging within 2-3 business days.",
			StylingTips: []string{
				"How to care for your YÈMALÍN piece",
				"Styling your new exclusive item",
				"Building a luxury wardrobe",
			},
			ReviewRequest: "Share your YÈMALÍN experience with our community",
		},

		WinBackFlow: WinBackFlow{
			Enabled:        true,
			InactivityDays: 60,
			ExclusiveOffer: "We miss you. Here's an exclusive 25% off your next purchase.",
		},

		FirstOrderDiscount: FirstOrderDiscount{
			Enabled:     true,
			Percentage:  15,
			PopupTiming: 30,
		},

		FreeShippingThreshold: FreeShippingThreshold{
			Enabled: true,
			Amount:  150,
		},

		ScarcityMessages: ScarcityMessages{
			Enabled:           true,
			LowStockThreshold: 5,
			Messages: []string{
				"Only {stock} left in stock",
				"Final pieces remaining",
				"Almost sold out - secure yours now",
				"Last chance - only {stock} remaining",
			},
		},

		VIPSegmentation: VIPSegmentation{
			Enabled:           true,
			SpendingThreshold: 500,
			Benefits: []string{
				"48-hour early access to all drops",
				"30% member-only pricing",
				"Exclusive collections",
				"Priority customer service",
				"Personal styling consultation",
			},
		},

		LuxuryStrategy: LuxuryStrategy{
			DropStrategy:       "supreme",
			MaxPiecesPerDrop:   50,
			AnticipationPeriod: 14,
			ExclusiveAccess: ExclusiveAccess{
				Enabled:          true,
				EarlyAccessHours: 48,
				MemberDiscount:   30,
			},
		},
	}
}
