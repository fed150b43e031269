package notifications

import (
	"strings"
	"testing"
)

func TestRenderWelcomeSeries(t *testing.T) {
	subject, body, err := Render(TemplateWelcomeSeries, map[string]string{
		"discount": "15",
		"code":     "WELCOME15",
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if subject == "" {
		t.Fatal("expected non-empty subject")
	}
	if !strings.Contains(body, "15% off") {
		t.Fatalf("discount not substituted: %s", body)
	}
	if !strings.Contains(body, "WELCOME15") {
		t.Fatalf("code not substituted: %s", body)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, err := Render("promo_v9", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestSubstituteStripsHTML(t *testing.T) {
	got := Substitute("Only {stock} left", map[string]string{
		"stock": "<script>alert(1)</script>2",
	})
	if strings.Contains(got, "<script>") {
		t.Fatalf("html not stripped: %s", got)
	}
	if !strings.Contains(got, "2 left") {
		t.Fatalf("unexpected substitution: %s", got)
	}
}

func TestSubstituteLeavesUnknownPlaceholders(t *testing.T) {
	got := Substitute("Hi {name}, only {stock} left", map[string]string{"stock": "3"})
	if got != "Hi {name}, only 3 left" {
		t.Fatalf("unexpected result: %s", got)
	}
}
