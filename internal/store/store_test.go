package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so run it again to check idempotency.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
	if result.Dirty {
		t.Error("migration left the schema dirty")
	}
}

func TestConversationUpsertAndList(t *testing.T) {
	db := testDB(t)

	conv := &Conversation{ID: "c1", Kind: "direct", Title: "Alice", LastMessageAt: 1000, LastMessagePreview: "hello"}
	if err := db.UpsertConversation(conv); err != nil {
		t.Fatal(err)
	}

	// Update title.
	conv.Title = "Alice Updated"
	if err := db.UpsertConversation(conv); err != nil {
		t.Fatal(err)
	}

	convs, err := db.ListConversations(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	if convs[0].Title != "Alice Updated" {
		t.Errorf("title = %q, want Alice Updated", convs[0].Title)
	}
}

// TestConversationLastMessageForwardOnly verifies a replayed stale
// event cannot move the summary backwards in time.
func TestConversationLastMessageForwardOnly(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{ID: "c1", LastMessageAt: 2000, LastMessagePreview: "newer"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertConversation(&Conversation{ID: "c1", LastMessageAt: 1000, LastMessagePreview: "older"}); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetConversation("c1")
	if err != nil {
		t.Fatal(err)
	}
	if c.LastMessageAt != 2000 {
		t.Errorf("last_message_at = %d, want 2000", c.LastMessageAt)
	}
	if c.LastMessagePreview != "newer" {
		t.Errorf("preview = %q, want newer", c.LastMessagePreview)
	}
}

func TestConversationListOrder(t *testing.T) {
	db := testDB(t)

	for _, c := range []Conversation{
		{ID: "old", LastMessageAt: 1000},
		{ID: "new", LastMessageAt: 3000},
		{ID: "mid", LastMessageAt: 2000},
	} {
		conv := c
		if err := db.UpsertConversation(&conv); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := db.ListConversations(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if convs[i].ID != id {
			t.Errorf("order[%d] = %s, want %s", i, convs[i].ID, id)
		}
	}
}

func TestGetConversationMissing(t *testing.T) {
	db := testDB(t)
	c, err := db.GetConversation("absent")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("got %v, want nil for missing conversation", c)
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	msg := &Message{ConversationID: "c1", MsgID: "m1", Content: "v1", Timestamp: 1000}
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}
	msg.Content = "v2"
	msg.Edited = true
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent)", len(msgs))
	}
	if msgs[0].Content != "v2" || !msgs[0].Edited {
		t.Errorf("message = %+v, want v2 edited", msgs[0])
	}
}

func TestListMessagesKeysetPagination(t *testing.T) {
	db := testDB(t)

	for i := 1; i <= 5; i++ {
		if err := db.UpsertMessage(&Message{
			ConversationID: "c1",
			MsgID:          string(rune('a' + i - 1)),
			Timestamp:      int64(i * 1000),
		}); err != nil {
			t.Fatal(err)
		}
	}

	// First page: newest two.
	page, err := db.ListMessages("c1", 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Timestamp != 5000 || page[1].Timestamp != 4000 {
		t.Fatalf("first page = %v, want [5000 4000]", page)
	}

	// Next page continues strictly before the oldest seen.
	page, err = db.ListMessages("c1", page[1].Timestamp, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Timestamp != 3000 || page[1].Timestamp != 2000 {
		t.Fatalf("second page = %v, want [3000 2000]", page)
	}
}

func TestDeleteMessage(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertMessage(&Message{ConversationID: "c1", MsgID: "m1", Timestamp: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteMessage("c1", "m1"); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after delete, want 0", len(msgs))
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{ID: "c1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessage(&Message{ConversationID: "c1", MsgID: "m1", Timestamp: 1000}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteConversation("c1"); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetConversation("c1")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Error("conversation still present after delete")
	}
	msgs, err := db.ListMessages("c1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d orphaned messages, want 0", len(msgs))
	}
}

func TestKVRoundTrip(t *testing.T) {
	db := testDB(t)

	if got, err := db.GetKV("absent"); err != nil || got != "" {
		t.Errorf("GetKV(absent) = %q, %v; want empty, nil", got, err)
	}

	if err := db.SetKV("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetKV("k", "v2"); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetKV("k")
	if err != nil {
		t.Fatal(err)
	}
	if got != "v2" {
		t.Errorf("GetKV(k) = %q, want v2", got)
	}
}
