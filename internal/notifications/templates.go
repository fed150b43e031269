package notifications

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Email template identifiers used by the marketing engine.
const (
	TemplateAbandonedCart = "abandoned_cart_v1"
	TemplateWelcomeSeries = "welcome_series_v1"
	TemplatePostPurchase  = "post_purchase_v1"
	TemplateWinBack       = "win_back_v1"
)

type template struct {
	subject string
	body    string
}

var emailTemplates = map[string]template{
	TemplateAbandonedCart: {
		subject: "Your YÈMALÍN selection is waiting",
		body:    "The pieces you selected are still reserved for you. Complete your order before they return to the atelier.",
	},
	TemplateWelcomeSeries: {
		subject: "Welcome to YÈMALÍN",
		body:    "Thank you for joining us. Enjoy {discount}% off your first order with code {code}.",
	},
	TemplatePostPurchase: {
		subject: "Your order is confirmed",
		body:    "Thank you for your order. We will notify you as soon as it ships.",
	},
	TemplateWinBack: {
		subject: "We saved something for you",
		body:    "It has been a while. Return with {discount}% off your next order.",
	},
}

var strictPolicy = bluemonday.StrictPolicy()

// Render resolves an email template and substitutes {variable} placeholders.
// Variable values are stripped of any HTML before substitution.
func Render(templateID string, vars map[string]string) (subject, body string, err error) {
	tpl, ok := emailTemplates[templateID]
	if !ok {
		return "", "", fmt.Errorf("notifications: unknown template %q", templateID)
	}
	return Substitute(tpl.subject, vars), Substitute(tpl.body, vars), nil
}

// Substitute replaces {name} placeholders in text with sanitised variable values.
// Unknown placeholders are left untouched.
func Substitute(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		pairs = append(pairs, "{"+name+"}", strictPolicy.Sanitize(value))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
