package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"reiatsu/interfaces"
	"reiatsu/spawner"

	"github.com/gorilla/mux"
)

// SpawnResetter is the part of the spawner the web API drives.
type SpawnResetter interface {
	Reset(guildID string) error
}

type SpawnHandler struct {
	log     interfaces.Logger
	store   interfaces.DataStore
	spawner SpawnResetter
}

func NewSpawnHandler(log interfaces.Logger, store interfaces.DataStore, sp SpawnResetter) *SpawnHandler {
	return &SpawnHandler{log: log, store: store, spawner: sp}
}

// Health はデータベースに到達できるかを返します。
func (h *SpawnHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.PingDB(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Get returns the persisted spawn state of a guild.
func (h *SpawnHandler) Get(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildID"]
	cfg, err := h.store.GetGuildSpawn(guildID)
	if err != nil {
		h.log.Error("出現設定の取得に失敗", "error", err, "guildID", guildID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		http.Error(w, "guild not configured", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, spawner.StatusOf(cfg, time.Now()))
}

// Reset clears a stuck spawn.
func (h *SpawnHandler) Reset(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildID"]
	if err := h.spawner.Reset(guildID); err != nil {
		if errors.Is(err, spawner.ErrNoChannel) {
			http.Error(w, "guild not configured", http.StatusNotFound)
			return
		}
		h.log.Error("Webからのリセットに失敗", "error", err, "guildID", guildID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.log.Info("Webから出現状態をリセットしました", "guildID", guildID)
	h.Get(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
