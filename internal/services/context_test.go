package services_test

import (
	"context"
	"testing"

	"followup/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithMeetingID(ctx, "doc-9")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.MeetingIDFromContext(ctx); !ok || id != "doc-9" {
		t.Fatalf("unexpected meeting id: %v %v", id, ok)
	}
}

func TestBlankMeetingIDPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithMeetingID(ctx, "")
	if _, ok := services.MeetingIDFromContext(ctx); ok {
		t.Fatal("expected no meeting id value")
	}
}
