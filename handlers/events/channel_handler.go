package events

import (
	"reiatsu/interfaces"

	"github.com/bwmarrin/discordgo"
)

// SpawnUnsetter removes a guild's spawn configuration.
type SpawnUnsetter interface {
	Unset(guildID string) error
}

// ChannelHandler は出現チャンネルが削除されたときに設定を解除します。
type ChannelHandler struct {
	Log     interfaces.Logger
	Store   interfaces.DataStore
	Spawner SpawnUnsetter
}

func NewChannelHandler(log interfaces.Logger, store interfaces.DataStore, spawner SpawnUnsetter) *ChannelHandler {
	return &ChannelHandler{Log: log, Store: store, Spawner: spawner}
}

func (h *ChannelHandler) Register(s *discordgo.Session) {
	s.AddHandler(h.onChannelDelete)
}

func (h *ChannelHandler) onChannelDelete(_ *discordgo.Session, e *discordgo.ChannelDelete) {
	h.handleDelete(e.GuildID, e.ID)
}

func (h *ChannelHandler) handleDelete(guildID, channelID string) {
	if guildID == "" {
		return
	}
	cfg, err := h.Store.GetGuildSpawn(guildID)
	if err != nil {
		h.Log.Error("出現設定の取得に失敗", "error", err, "guildID", guildID)
		return
	}
	if cfg == nil || cfg.ChannelID != channelID {
		return
	}
	if err := h.Spawner.Unset(guildID); err != nil {
		h.Log.Error("削除されたチャンネルの出現設定の解除に失敗", "error", err, "guildID", guildID, "channelID", channelID)
		return
	}
	h.Log.Info("出現チャンネルが削除されたため設定を解除しました", "guildID", guildID, "channelID", channelID)
}
