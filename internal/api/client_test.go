package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/atendehq/atende/internal/api"
	"github.com/atendehq/atende/internal/stub"
	"go.uber.org/zap"
)

func testBackend(t *testing.T) (*stub.Server, *api.Client) {
	t.Helper()
	srv := stub.New(zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, api.NewClient(ts.URL, "", zap.NewNop())
}

func TestListConversations(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	convs, err := client.ListConversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 3 {
		t.Fatalf("got %d conversations, want 3", len(convs))
	}
	byID := make(map[int64]api.Conversation)
	for _, c := range convs {
		byID[c.ID] = c
	}
	if byID[1].UnreadCount < 1 {
		t.Errorf("conversation 1 unread = %d, want >= 1", byID[1].UnreadCount)
	}
	if !byID[3].RequiresReengagement {
		t.Error("conversation 3 should require reengagement")
	}
}

func TestListMessagesOrdered(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	msgs, err := client.ListMessages(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID <= msgs[i-1].ID {
			t.Fatalf("message ids not increasing: %d then %d", msgs[i-1].ID, msgs[i].ID)
		}
	}
}

func TestSendText(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	msg, err := client.SendText(context.Background(), 2, "Recebido, obrigado!")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Direction != api.DirectionOut {
		t.Errorf("direction = %q, want out", msg.Direction)
	}
	if msg.Text != "Recebido, obrigado!" {
		t.Errorf("text = %q", msg.Text)
	}

	msgs, err := client.ListMessages(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if msgs[len(msgs)-1].ID != msg.ID {
		t.Error("sent message not appended to thread")
	}
}

func TestSendMediaMultipart(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	path := filepath.Join(t.TempDir(), "photo.png")
	data := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 1, 2, 3}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	msg, err := client.SendMedia(context.Background(), 1, api.MediaImage, path, "o salão principal")
	if err != nil {
		t.Fatal(err)
	}
	if msg.MediaKind != api.MediaImage {
		t.Errorf("kind = %q, want image", msg.MediaKind)
	}
	if msg.MediaID == "" {
		t.Fatal("no media id assigned")
	}

	got, err := client.FetchMedia(context.Background(), msg.MediaID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Error("fetched media differs from uploaded bytes")
	}
}

func TestSendMediaAudioOmitsCaption(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	path := filepath.Join(t.TempDir(), "note.mp3")
	if err := os.WriteFile(path, []byte("ID3\x03\x00audio"), 0600); err != nil {
		t.Fatal(err)
	}

	// The backend rejects captions on audio; the client must drop the
	// caption rather than surface a 400.
	msg, err := client.SendMedia(context.Background(), 1, api.MediaAudio, path, "ignored")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Text != "" {
		t.Errorf("audio message text = %q, want empty", msg.Text)
	}
}

func TestMarkRead(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	if err := client.MarkRead(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	convs, err := client.ListConversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range convs {
		if c.ID == 1 && c.UnreadCount != 0 {
			t.Errorf("unread = %d after mark read", c.UnreadCount)
		}
	}
}

func TestSetMode(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	if err := client.SetMode(context.Background(), 1, api.ModeHuman); err != nil {
		t.Fatal(err)
	}
	convs, err := client.ListConversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range convs {
		if c.ID == 1 && c.BotActive {
			t.Error("bot still active after switching to human")
		}
	}
}

func TestResetBot(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	if err := client.ResetBot(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
}

func TestUnknownConversation(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	if err := client.MarkRead(context.Background(), 999); err == nil {
		t.Error("expected error for unknown conversation")
	}
	if _, err := client.SendText(context.Background(), 999, "hi"); err == nil {
		t.Error("expected error for unknown conversation")
	}
}

func TestFetchMediaUnknownID(t *testing.T) {
	srv, client := testBackend(t)
	srv.Seed()

	if _, err := client.FetchMedia(context.Background(), "no-such-id"); err == nil {
		t.Error("expected error for unknown media id")
	}
}

func TestMalformedRecordsQuarantined(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/conversations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Second record lacks id and client_name; third has a negative
		// unread count. Both must be dropped, not propagated.
		_, _ = w.Write([]byte(`[
			{"id": 1, "client_name": "Mariana", "unread_count": 2},
			{"phone": "+55 11 90000-0000"},
			{"id": 3, "client_name": "Ricardo", "unread_count": -4}
		]`))
	})
	mux.HandleFunc("/api/v1/conversations/1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// A media_kind without a media_id and an invalid direction are
		// both quarantined.
		_, _ = w.Write([]byte(`[
			{"id": 1, "conversation_id": 1, "direction": "in", "text": "oi"},
			{"id": 2, "conversation_id": 1, "direction": "sideways", "text": "bad"},
			{"id": 3, "conversation_id": 1, "direction": "in", "media_kind": "image"}
		]`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := api.NewClient(ts.URL, "", zap.NewNop())

	convs, err := client.ListConversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].ID != 1 {
		t.Fatalf("got %d conversations, want only the well-formed one", len(convs))
	}

	msgs, err := client.ListMessages(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != 1 {
		t.Fatalf("got %d messages, want only the well-formed one", len(msgs))
	}
}

func TestBearerTokenSent(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	client := api.NewClient(ts.URL, "sekret", zap.NewNop())
	if _, err := client.ListConversations(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer sekret" {
		t.Errorf("Authorization = %q, want Bearer token", got)
	}
}
