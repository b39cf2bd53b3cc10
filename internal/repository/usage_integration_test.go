//go:build integration

package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dieai/dieai/internal/model"
)

// ============================================================================
// Usage Repository Integration Tests
// ============================================================================

func newUsageRecord(apiKeyID, userID, endpoint string, at time.Time) *model.UsageRecord {
	return &model.UsageRecord{
		ID:               ulid.Make().String(),
		EventID:          fmt.Sprintf("%d-0", at.UnixNano()),
		APIKeyID:         apiKeyID,
		UserID:           userID,
		Endpoint:         endpoint,
		PromptTokens:     10,
		CompletionTokens: 5,
		StatusCode:       200,
		DurationMS:       42,
		RequestedAt:      at,
	}
}

func TestIntegrationUsageRepository_BulkInsertIdempotent(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	usageRepo := NewUsageRepository(repo)

	now := time.Now().UTC()
	rec := newUsageRecord("key1", "user1", "chat", now)

	if err := usageRepo.BulkInsert(ctx, []*model.UsageRecord{rec}); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	// Replaying the same event must not double-count
	replay := newUsageRecord("key1", "user1", "chat", now)
	replay.EventID = rec.EventID

	if err := usageRepo.BulkInsert(ctx, []*model.UsageRecord{replay}); err != nil {
		t.Fatalf("BulkInsert (replay) failed: %v", err)
	}

	window, err := usageRepo.GetKeyUsage(ctx, "key1", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("GetKeyUsage failed: %v", err)
	}
	if window.Requests != 1 {
		t.Errorf("Expected 1 request after replay, got %d", window.Requests)
	}
	if window.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", window.TotalTokens)
	}
}

func TestIntegrationUsageRepository_KeyUsageWindow(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	usageRepo := NewUsageRepository(repo)

	now := time.Now().UTC()
	records := []*model.UsageRecord{
		newUsageRecord("key1", "user1", "chat", now),
		newUsageRecord("key1", "user1", "chat", now.Add(-time.Hour)),
		newUsageRecord("key1", "user1", "search", now.Add(-2*time.Hour)),
		// Outside the window
		newUsageRecord("key1", "user1", "chat", now.Add(-48*time.Hour)),
		// Different key
		newUsageRecord("key2", "user1", "chat", now),
	}
	for i, rec := range records {
		rec.EventID = fmt.Sprintf("evt-%d", i)
	}

	if err := usageRepo.BulkInsert(ctx, records); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	window, err := usageRepo.GetKeyUsage(ctx, "key1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("GetKeyUsage failed: %v", err)
	}

	if window.Requests != 3 {
		t.Errorf("Expected 3 requests in window, got %d", window.Requests)
	}
	if len(window.ByEndpoint) != 2 {
		t.Fatalf("Expected 2 endpoints in breakdown, got %d", len(window.ByEndpoint))
	}
	// Ordered by request count descending
	if window.ByEndpoint[0].Endpoint != "chat" || window.ByEndpoint[0].Requests != 2 {
		t.Errorf("unexpected breakdown: %+v", window.ByEndpoint)
	}
}

func TestIntegrationUsageRepository_UserUsageAcrossKeys(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	usageRepo := NewUsageRepository(repo)

	now := time.Now().UTC()
	records := []*model.UsageRecord{
		newUsageRecord("key1", "user1", "chat", now),
		newUsageRecord("key2", "user1", "search", now),
		newUsageRecord("key3", "user2", "chat", now),
	}
	for i, rec := range records {
		rec.EventID = fmt.Sprintf("evt-%d", i)
	}

	if err := usageRepo.BulkInsert(ctx, records); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	window, err := usageRepo.GetUserUsage(ctx, "user1", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("GetUserUsage failed: %v", err)
	}
	if window.Requests != 2 {
		t.Errorf("Expected 2 requests for user1, got %d", window.Requests)
	}
}

func TestIntegrationUsageRepository_ListRecentByKey(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	usageRepo := NewUsageRepository(repo)

	now := time.Now().UTC()
	var records []*model.UsageRecord
	for i := 0; i < 5; i++ {
		rec := newUsageRecord("key1", "user1", "chat", now.Add(-time.Duration(i)*time.Minute))
		rec.EventID = fmt.Sprintf("evt-%d", i)
		records = append(records, rec)
	}

	if err := usageRepo.BulkInsert(ctx, records); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	recent, err := usageRepo.ListRecentByKey(ctx, "key1", 3)
	if err != nil {
		t.Fatalf("ListRecentByKey failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(recent))
	}
	// Newest first
	if !recent[0].RequestedAt.After(recent[1].RequestedAt) {
		t.Error("records should be ordered newest first")
	}
}

func TestIntegrationUsageRepository_EmptyBatch(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	usageRepo := NewUsageRepository(repo)

	if err := usageRepo.BulkInsert(ctx, nil); err != nil {
		t.Errorf("BulkInsert with empty batch should be a no-op, got: %v", err)
	}
}
