package sync

import (
	"testing"

	"github.com/atendehq/atende/internal/api"
)

func TestFingerprintStable(t *testing.T) {
	convs := []api.Conversation{
		{ID: 1, ClientName: "Ana", UnreadCount: 2, LastMessageAt: 1000, LastMessagePreview: "oi"},
		{ID: 2, ClientName: "Bruno", BotActive: true},
	}
	same := []api.Conversation{
		{ID: 1, ClientName: "Ana", UnreadCount: 2, LastMessageAt: 1000, LastMessagePreview: "oi"},
		{ID: 2, ClientName: "Bruno", BotActive: true},
	}
	if Fingerprint(convs) != Fingerprint(same) {
		t.Error("fingerprints of identical content differ")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := []api.Conversation{{ID: 1, UnreadCount: 2, LastMessageAt: 1000, LastMessagePreview: "oi"}}

	tests := []struct {
		name    string
		changed api.Conversation
	}{
		{"client name", api.Conversation{ID: 1, ClientName: "Ana Paula", UnreadCount: 2, LastMessageAt: 1000, LastMessagePreview: "oi"}},
		{"phone", api.Conversation{ID: 1, Phone: "+5511999990000", UnreadCount: 2, LastMessageAt: 1000, LastMessagePreview: "oi"}},
		{"unread", api.Conversation{ID: 1, UnreadCount: 0, LastMessageAt: 1000, LastMessagePreview: "oi"}},
		{"timestamp", api.Conversation{ID: 1, UnreadCount: 2, LastMessageAt: 2000, LastMessagePreview: "oi"}},
		{"preview", api.Conversation{ID: 1, UnreadCount: 2, LastMessageAt: 1000, LastMessagePreview: "tchau"}},
		{"bot flag", api.Conversation{ID: 1, UnreadCount: 2, LastMessageAt: 1000, LastMessagePreview: "oi", BotActive: true}},
		{"reengagement", api.Conversation{ID: 1, UnreadCount: 2, LastMessageAt: 1000, LastMessagePreview: "oi", RequiresReengagement: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Fingerprint(base) == Fingerprint([]api.Conversation{tt.changed}) {
				t.Error("fingerprint did not change")
			}
		})
	}
}

func TestFingerprintEmpty(t *testing.T) {
	if Fingerprint(nil) != Fingerprint([]api.Conversation{}) {
		t.Error("nil and empty lists should fingerprint identically")
	}
}

func TestThreadChanged(t *testing.T) {
	m := func(ids ...int64) []api.Message {
		out := make([]api.Message, 0, len(ids))
		for _, id := range ids {
			out = append(out, api.Message{ID: id})
		}
		return out
	}

	tests := []struct {
		name  string
		held  []api.Message
		fresh []api.Message
		want  bool
	}{
		{"both empty", nil, nil, false},
		{"nil vs empty", nil, []api.Message{}, false},
		{"identical", m(1, 2, 3), m(1, 2, 3), false},
		{"appended", m(1, 2), m(1, 2, 3), true},
		{"first load", nil, m(1), true},
		{"cleared", m(1), nil, true},
		{"same count different last id", m(1, 2, 3), m(1, 2, 4), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThreadChanged(tt.held, tt.fresh); got != tt.want {
				t.Errorf("ThreadChanged = %v, want %v", got, tt.want)
			}
		})
	}
}
