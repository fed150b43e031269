package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/yemalin/api/internal/notifications"
)

func TestPubSubNotifierPublishesJob(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "notification-jobs")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	notifier, err := NewPubSubNotifier(topic)
	if err != nil {
		t.Fatalf("NewPubSubNotifier: %v", err)
	}

	job := notifications.Job{
		ID:         "job_test",
		Channel:    notifications.ChannelEmail,
		Template:   notifications.TemplateAbandonedCart,
		Recipient:  "client@example.com",
		Subject:    "Your YÈMALÍN selection is waiting",
		Body:       "The pieces you selected are still reserved for you.",
		EnqueuedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	if err := notifier.Send(ctx, job); err != nil {
		t.Fatalf("Send: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload notifications.Job
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ID != job.ID || payload.Template != job.Template {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["channel"]; attr != "email" {
		t.Fatalf("expected channel attribute, got %q", attr)
	}
}

func TestNewPubSubNotifierRequiresTopic(t *testing.T) {
	if _, err := NewPubSubNotifier(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
}
