package publishers

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
)

func TestPubSubPublisherPublishes(t *testing.T) {
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	admin, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer admin.Close()
	if _, err := admin.CreateTopic(ctx, "episodes"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	pub, err := newPubSubPublisher(ctx, PublisherConfig{
		ID:     "gcp",
		Type:   TypePubSub,
		PubSub: &PubSubPublisherConfig{ProjectID: "test-project", Topic: "episodes"},
	}, nil)
	if err != nil {
		t.Fatalf("newPubSubPublisher: %v", err)
	}
	defer pub.(*pubsubPublisher).Close()

	if err := pub.Publish(ctx, sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msgs := server.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Attributes["episode_guid"] != "ep-1" {
		t.Fatalf("unexpected attributes %v", msgs[0].Attributes)
	}
}
