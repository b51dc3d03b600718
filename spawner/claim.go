package spawner

import (
	"fmt"

	"reiatsu/reiatsu"
	"reiatsu/storage"
)

// ReactionEvent is a reaction added to some message in a guild.
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

type Outcome int

const (
	OutcomeIgnored Outcome = iota // 対象外の絵文字またはDM
	OutcomeStale                  // 出現していない、または既に獲得済み
	OutcomeClaimed
	OutcomeDecoy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStale:
		return "stale"
	case OutcomeClaimed:
		return "claimed"
	case OutcomeDecoy:
		return "decoy"
	default:
		return "ignored"
	}
}

// ClaimResult describes what a reaction did.
type ClaimResult struct {
	Outcome Outcome
	UserID  string // 報酬を受け取ったプレイヤー (囮の場合は持ち主)
	Gain    int64
	Super   bool
	Total   int64
}

// Claim は出現メッセージへのリアクションを裁定します。
// 1つの出現に対して報酬を受け取れるのは最初の1人だけです。
func (s *Spawner) Claim(ev ReactionEvent) (ClaimResult, error) {
	if ev.GuildID == "" || ev.Emoji != s.emoji {
		return ClaimResult{Outcome: OutcomeIgnored}, nil
	}

	// 囮は通常の出現より先に確認する
	if res, handled, err := s.resolveDecoy(ev); handled || err != nil {
		return res, err
	}

	res, err := s.claimSpawn(ev)
	if err != nil || res.Outcome != OutcomeStale {
		return res, err
	}
	// 囮の記録中に届いたリアクションは、ギルドロックを待った後なら持ち主が見つかる
	if dres, handled, err := s.resolveDecoy(ev); handled || err != nil {
		return dres, err
	}
	return res, nil
}

// claimSpawn arbitrates a reaction on the guild's main spawn under the guild lock.
func (s *Spawner) claimSpawn(ev ReactionEvent) (ClaimResult, error) {
	unlock := s.guildLocks.Lock(ev.GuildID)
	defer unlock()

	cfg, err := s.store.GetGuildSpawn(ev.GuildID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("failed to read guild spawn: %w", err)
	}
	if cfg == nil || !cfg.Live(ev.MessageID) {
		return ClaimResult{Outcome: OutcomeStale}, nil
	}

	ok, err := s.store.ClaimSpawn(ev.GuildID, ev.MessageID, s.randomDelay(cfg.SpawnSpeed))
	if err != nil {
		return ClaimResult{}, fmt.Errorf("failed to claim spawn: %w", err)
	}
	if !ok {
		return ClaimResult{Outcome: OutcomeStale}, nil
	}

	res, class, err := s.reward(ev.UserID)
	if err != nil {
		// 出現は既に消費済み。メッセージだけ片付ける
		s.deleteMessage(ev.ChannelID, ev.MessageID)
		return ClaimResult{Outcome: OutcomeClaimed, UserID: ev.UserID}, err
	}

	s.log.Info("Reiatsuが獲得されました", "guildID", ev.GuildID, "userID", ev.UserID, "gain", res.Gain, "super", res.Super)
	if _, err := s.session.ChannelMessageSendEmbed(ev.ChannelID, claimEmbed(ev.UserID, class, reiatsu.Result{Gain: res.Gain, Super: res.Super}, res.Total)); err != nil {
		s.log.Warn("獲得メッセージの送信に失敗", "error", err, "guildID", ev.GuildID)
	}
	s.deleteMessage(ev.ChannelID, ev.MessageID)
	return res, nil
}

func (s *Spawner) reward(userID string) (ClaimResult, reiatsu.Class, error) {
	var (
		result reiatsu.Result
		class  reiatsu.Class
	)
	p, err := s.UpdatePlayer(userID, func(p *storage.PlayerReiatsu) error {
		class = reiatsu.ParseClass(p.Class)
		result = reiatsu.Calculate(class, s.roll(), p.BonusCounter)
		p.Points += result.Gain
		p.BonusCounter = result.Counter
		return nil
	})
	if err != nil {
		return ClaimResult{}, class, fmt.Errorf("failed to reward %s: %w", userID, err)
	}
	return ClaimResult{
		Outcome: OutcomeClaimed,
		UserID:  userID,
		Gain:    result.Gain,
		Super:   result.Super,
		Total:   p.Points,
	}, class, nil
}
