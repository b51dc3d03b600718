package commands

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"reiatsu/logger"
	"reiatsu/storage"

	"github.com/bwmarrin/discordgo"
)

// recordingTransport answers every Discord REST call with status and keeps the response types sent.
type recordingTransport struct {
	mu     sync.Mutex
	status int
	types  []discordgo.InteractionResponseType
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body struct {
		Type discordgo.InteractionResponseType `json:"type"`
	}
	if req.Body != nil {
		json.NewDecoder(req.Body).Decode(&body)
	}
	rt.mu.Lock()
	rt.types = append(rt.types, body.Type)
	rt.mu.Unlock()

	respBody := ""
	if rt.status >= 400 {
		respBody = `{"message":"boom","code":0}`
	}
	return &http.Response{
		StatusCode: rt.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(respBody)),
		Request:    req,
	}, nil
}

func (rt *recordingTransport) calls() []discordgo.InteractionResponseType {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]discordgo.InteractionResponseType(nil), rt.types...)
}

func newTestSession(t *testing.T, status int) (*discordgo.Session, *recordingTransport) {
	t.Helper()
	s, err := discordgo.New("Bot test")
	if err != nil {
		t.Fatal(err)
	}
	rt := &recordingTransport{status: status}
	s.Client = &http.Client{Transport: rt}
	s.MaxRestRetries = 0
	return s, rt
}

func newCommandStore(t *testing.T) *storage.DBStore {
	t.Helper()
	store, err := storage.NewDBStore(storage.DriverSQLite, filepath.Join(t.TempDir(), "reiatsu.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(store.Close)
	return store
}

func adminInteraction(guildID, sub string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:      "i1",
		Token:   "tok",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "reiatsuadmin",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: sub, Type: discordgo.ApplicationCommandOptionSubCommand},
			},
		},
	}}
}

func TestAdminStatusRespondsOnce(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "send succeeds", status: http.StatusNoContent},
		{name: "send fails", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCommandStore(t)
			if err := store.SetSpawnChannel("g1", "c1", "normal"); err != nil {
				t.Fatal(err)
			}
			s, rt := newTestSession(t, tt.status)
			cmd := &ReiatsuAdminCommand{Store: store, Log: logger.New(io.Discard, slog.LevelDebug)}

			cmd.Handle(s, adminInteraction("g1", "status"))

			if got := rt.calls(); len(got) != 1 {
				t.Errorf("interaction responses = %v, want exactly one", got)
			}
		})
	}
}

func TestAdminStatusUnconfiguredGuild(t *testing.T) {
	s, rt := newTestSession(t, http.StatusNoContent)
	cmd := &ReiatsuAdminCommand{Store: newCommandStore(t), Log: logger.New(io.Discard, slog.LevelDebug)}

	cmd.Handle(s, adminInteraction("g1", "status"))

	got := rt.calls()
	if len(got) != 1 || got[0] != discordgo.InteractionResponseChannelMessageWithSource {
		t.Errorf("interaction responses = %v, want one error reply", got)
	}
}

func TestLeaderboardRefresh(t *testing.T) {
	store := newCommandStore(t)
	if err := store.SavePlayer(&storage.PlayerReiatsu{UserID: "u1", Points: 12}); err != nil {
		t.Fatal(err)
	}
	s, rt := newTestSession(t, http.StatusNoContent)
	cmd := &ReiatsuCommand{Store: store, Log: logger.New(io.Discard, slog.LevelDebug)}

	if ids := cmd.GetComponentIDs(); len(ids) != 1 || ids[0] != leaderboardRefreshID {
		t.Fatalf("GetComponentIDs() = %v", ids)
	}

	cmd.HandleComponent(s, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:    "i2",
		Token: "tok",
		Type:  discordgo.InteractionMessageComponent,
		Data:  discordgo.MessageComponentInteractionData{CustomID: leaderboardRefreshID},
	}})

	got := rt.calls()
	if len(got) != 1 || got[0] != discordgo.InteractionResponseUpdateMessage {
		t.Errorf("interaction responses = %v, want one message update", got)
	}
}

func TestLeaderboardResponse(t *testing.T) {
	empty := leaderboardResponse(nil)
	if !strings.Contains(empty.Embeds[0].Description, "Personne") {
		t.Errorf("empty leaderboard = %q", empty.Embeds[0].Description)
	}

	data := leaderboardResponse([]storage.PlayerReiatsu{{UserID: "u1", Points: 12}})
	if !strings.Contains(data.Embeds[0].Description, "<@u1>") {
		t.Errorf("leaderboard = %q", data.Embeds[0].Description)
	}
	row, ok := data.Components[0].(discordgo.ActionsRow)
	if !ok || len(row.Components) != 1 {
		t.Fatalf("components = %+v", data.Components)
	}
	if btn, ok := row.Components[0].(discordgo.Button); !ok || btn.CustomID != leaderboardRefreshID {
		t.Errorf("refresh button = %+v", row.Components[0])
	}
}
