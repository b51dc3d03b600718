package spawner

import (
	"context"
	"fmt"

	"reiatsu/reiatsu"
	"reiatsu/storage"
)

// spawnDecoys はスキルを発動中のイリュージョニストごとに囮を1つ投稿します。
func (s *Spawner) spawnDecoys(ctx context.Context) {
	players, err := s.store.ListDecoyCandidates(reiatsu.ClassIllusionniste.Key())
	if err != nil {
		s.log.Error("囮候補の取得に失敗", "error", err)
		return
	}

	for i := range players {
		if ctx.Err() != nil {
			return
		}
		if err := s.spawnDecoy(ctx, &players[i]); err != nil {
			s.log.Error("囮の投稿に失敗", "error", err, "userID", players[i].UserID)
		}
	}
}

func (s *Spawner) spawnDecoy(ctx context.Context, p *storage.PlayerReiatsu) error {
	if p.SkillGuildID == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	// 投稿から SetDecoy まではギルドロックを保持する。
	// その間に届いたリアクションは Claim がロック取得後に囮として再確認する。
	unlockGuild := s.guildLocks.Lock(*p.SkillGuildID)
	defer unlockGuild()

	cfg, err := s.store.GetGuildSpawn(*p.SkillGuildID)
	if err != nil {
		return fmt.Errorf("failed to read guild spawn: %w", err)
	}
	if cfg == nil || cfg.ChannelID == "" {
		s.log.Debug("囮を投稿するチャンネルがありません", "userID", p.UserID, "guildID", *p.SkillGuildID)
		return nil
	}

	msg, err := s.session.ChannelMessageSendEmbed(cfg.ChannelID, decoyEmbed(s.emoji))
	if err != nil {
		return fmt.Errorf("failed to send decoy to %s: %w", cfg.ChannelID, err)
	}
	if err := s.session.MessageReactionAdd(cfg.ChannelID, msg.ID, s.emoji); err != nil {
		s.log.Warn("囮へのリアクション追加に失敗", "error", err, "messageID", msg.ID)
	}

	unlock := s.playerLocks.Lock(p.UserID)
	ok, err := s.store.SetDecoy(p.UserID, cfg.ChannelID, msg.ID)
	unlock()
	if err != nil || !ok {
		s.deleteMessage(cfg.ChannelID, msg.ID)
		if err != nil {
			return fmt.Errorf("failed to record decoy: %w", err)
		}
		return nil
	}

	s.log.Info("囮を投稿しました", "userID", p.UserID, "guildID", cfg.GuildID, "messageID", msg.ID)
	return nil
}

// resolveDecoy handles a reaction on a live decoy. handled is false when the message is not a decoy.
func (s *Spawner) resolveDecoy(ev ReactionEvent) (res ClaimResult, handled bool, err error) {
	owner, err := s.store.FindDecoyOwner(ev.MessageID)
	if err != nil {
		return ClaimResult{}, true, fmt.Errorf("failed to look up decoy: %w", err)
	}
	if owner == nil {
		return ClaimResult{}, false, nil
	}

	unlock := s.playerLocks.Lock(owner.UserID)
	ok, err := s.store.ResolveDecoy(owner.UserID, ev.MessageID, reiatsu.DecoyGain)
	unlock()
	if err != nil {
		return ClaimResult{}, true, fmt.Errorf("failed to resolve decoy: %w", err)
	}
	if !ok {
		return ClaimResult{Outcome: OutcomeStale}, true, nil
	}

	s.log.Info("囮が獲得されました", "ownerID", owner.UserID, "clickerID", ev.UserID, "messageID", ev.MessageID)
	if _, err := s.session.ChannelMessageSendEmbed(ev.ChannelID, decoyClaimEmbed(ev.UserID, owner.UserID)); err != nil {
		s.log.Warn("囮メッセージの送信に失敗", "error", err)
	}
	s.deleteMessage(ev.ChannelID, ev.MessageID)

	return ClaimResult{
		Outcome: OutcomeDecoy,
		UserID:  owner.UserID,
		Gain:    reiatsu.DecoyGain,
		Total:   owner.Points + reiatsu.DecoyGain,
	}, true, nil
}
