package events

import (
	"reiatsu/interfaces"
	"reiatsu/spawner"

	"github.com/bwmarrin/discordgo"
)

// Claimer は出現へのリアクションを裁定します。*spawner.Spawner が満たします。
type Claimer interface {
	Claim(ev spawner.ReactionEvent) (spawner.ClaimResult, error)
}

type ReactionHandler struct {
	Log     interfaces.Logger
	Claimer Claimer
}

func NewReactionHandler(log interfaces.Logger, claimer Claimer) *ReactionHandler {
	return &ReactionHandler{Log: log, Claimer: claimer}
}

func (h *ReactionHandler) Register(s *discordgo.Session) {
	s.AddHandler(h.onReactionAdd)
}

func (h *ReactionHandler) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	var selfID string
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	h.handle(selfID, r)
}

func (h *ReactionHandler) handle(selfID string, r *discordgo.MessageReactionAdd) {
	if r.UserID == selfID {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}

	res, err := h.Claimer.Claim(spawner.ReactionEvent{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
	})
	if err != nil {
		h.Log.Error("リアクションの処理に失敗", "error", err, "guildID", r.GuildID, "messageID", r.MessageID, "userID", r.UserID)
		return
	}
	if res.Outcome == spawner.OutcomeStale {
		h.Log.Debug("古い出現へのリアクションを無視", "guildID", r.GuildID, "messageID", r.MessageID, "userID", r.UserID)
	}
}
