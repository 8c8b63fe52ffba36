package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"callpower/internal/campaign"
	"callpower/pkg/utils"
)

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{BaseURL: "https://cdn.example.org/audio/"}
	ctx := context.Background()

	got, err := r.AudioURL(ctx, campaign.AudioRecording{FileKey: "/intro.mp3"})
	if err != nil || got != "https://cdn.example.org/audio/intro.mp3" {
		t.Fatalf("unexpected url %q err=%v", got, err)
	}
	got, err = r.AudioURL(ctx, campaign.AudioRecording{FileURL: "https://x/y.mp3", FileKey: "ignored"})
	if err != nil || got != "https://x/y.mp3" {
		t.Fatalf("expected stored url first, got %q err=%v", got, err)
	}
	if _, err := (StaticResolver{}).AudioURL(ctx, campaign.AudioRecording{FileKey: "k"}); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestS3Resolver_Presigns(t *testing.T) {
	client, err := utils.OpenS3(utils.S3Config{
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("open s3: %v", err)
	}
	r := NewS3Resolver(client, "campaign-audio", 15*time.Minute)

	got, err := r.AudioURL(context.Background(), campaign.AudioRecording{FileKey: "1/msg_intro.mp3"})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(got, "campaign-audio/1/msg_intro.mp3") || !strings.Contains(got, "X-Amz-Signature=") {
		t.Fatalf("unexpected presigned url %q", got)
	}
}
