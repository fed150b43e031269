package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_FIREBASE_PROJECT_ID": "yemalin-dev",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "yemalin-dev" {
		t.Fatalf("firestore project should default to firebase project, got %q", cfg.Firestore.ProjectID)
	}
	if cfg.PubSub.ProjectID != "yemalin-dev" {
		t.Fatalf("pubsub project should default to firebase project, got %q", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.NotificationTopic != "notification-jobs" {
		t.Fatalf("unexpected notification topic: %s", cfg.PubSub.NotificationTopic)
	}
	if cfg.Notifications.Workers != 4 || cfg.Notifications.QueueSize != 256 {
		t.Fatalf("unexpected notification defaults: %+v", cfg.Notifications)
	}
	if cfg.RateLimits.WaitlistPerMinute != 10 {
		t.Fatalf("unexpected waitlist rate limit: %d", cfg.RateLimits.WaitlistPerMinute)
	}
	if cfg.Idempotency.Header != "Idempotency-Key" {
		t.Fatalf("unexpected idempotency header: %s", cfg.Idempotency.Header)
	}
}

func TestLoadFailsValidationWithoutProject(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	found := false
	for _, field := range fields {
		if field == "Firebase.ProjectID" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Firebase.ProjectID in missing fields, got %v", fields)
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref != "secret://projects/yemalin/secrets/stripe/versions/latest" {
			return "", errors.New("unexpected ref " + ref)
		}
		return "sk_live_resolved", nil
	})

	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
		WithEnvMap(map[string]string{
			"API_FIREBASE_PROJECT_ID": "yemalin-dev",
			"API_STRIPE_API_KEY":      "sm://projects/yemalin/secrets/stripe/versions/latest",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Stripe.APIKey != "sk_live_resolved" {
		t.Fatalf("secret not resolved, got %q", cfg.Stripe.APIKey)
	}
}

func TestLoadReportsMissingRequiredSecrets(t *testing.T) {
	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Stripe.APIKey"),
		WithEnvMap(map[string]string{
			"API_FIREBASE_PROJECT_ID": "yemalin-dev",
		}),
	)
	if err == nil {
		t.Fatal("expected missing secrets error")
	}

	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T", err)
	}
	names := missing.Names()
	if len(names) != 1 || names[0] != "Stripe.APIKey" {
		t.Fatalf("unexpected missing secret names: %v", names)
	}
}

func TestLoadSecretResolverFailure(t *testing.T) {
	resolver := SecretResolverFunc(func(context.Context, string) (string, error) {
		return "", errors.New("backend unavailable")
	})

	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
		WithEnvMap(map[string]string{
			"API_FIREBASE_PROJECT_ID": "yemalin-dev",
			"API_STRIPE_API_KEY":      "secret://projects/yemalin/secrets/stripe/versions/latest",
		}),
	)
	if err == nil {
		t.Fatal("expected secret error")
	}

	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
}
