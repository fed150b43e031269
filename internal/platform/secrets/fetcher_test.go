package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubSecretManager struct {
	responses map[string]string
	err       error
	calls     int
}

func (s *stubSecretManager) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	value, ok := s.responses[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (s *stubSecretManager) Close() error { return nil }

func TestResolveFetchesAndCaches(t *testing.T) {
	stub := &stubSecretManager{
		responses: map[string]string{
			"projects/yemalin-dev/secrets/stripe-api-key/versions/latest": "sk_test_123",
		},
	}

	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(stub),
		WithDefaultProject("yemalin-dev"),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	value, err := fetcher.Resolve(context.Background(), "secret://stripe-api-key")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if value != "sk_test_123" {
		t.Fatalf("unexpected value %q", value)
	}

	if _, err := fetcher.Resolve(context.Background(), "secret://stripe-api-key"); err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected single remote call, got %d", stub.calls)
	}
}

func TestResolveUsesFallbackWhenUnavailable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.local")
	content := "secret://admin-token-secret=local-secret\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}

	stub := &stubSecretManager{err: status.Error(codes.Unavailable, "backend down")}

	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(stub),
		WithDefaultProject("yemalin-dev"),
		WithFallbackFile(path),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	value, err := fetcher.Resolve(context.Background(), "secret://admin-token-secret")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if value != "local-secret" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestResolveInvalidateForcesRefetch(t *testing.T) {
	stub := &stubSecretManager{
		responses: map[string]string{
			"projects/yemalin-dev/secrets/signer-key/versions/latest": "v1",
		},
	}

	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(stub),
		WithDefaultProject("yemalin-dev"),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	if _, err := fetcher.Resolve(context.Background(), "secret://signer-key"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	fetcher.Invalidate("secret://signer-key")
	if _, err := fetcher.Resolve(context.Background(), "secret://signer-key"); err != nil {
		t.Fatalf("Resolve after invalidate: %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", stub.calls)
	}
}

func TestResolveRejectsInvalidReference(t *testing.T) {
	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(&stubSecretManager{}),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	if _, err := fetcher.Resolve(context.Background(), "vault://nope"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
