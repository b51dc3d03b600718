package spawner

import (
	"fmt"

	"reiatsu/reiatsu"
)

// SetChannel configures the spawn channel, creating the guild row with the default tier.
func (s *Spawner) SetChannel(guildID, channelID string) error {
	unlock := s.guildLocks.Lock(guildID)
	defer unlock()

	if err := s.store.SetSpawnChannel(guildID, channelID, s.defaultSpeed); err != nil {
		return fmt.Errorf("failed to set spawn channel: %w", err)
	}
	return nil
}

// SetFixedDelay sets the delay override in seconds. 0 clears it.
func (s *Spawner) SetFixedDelay(guildID string, seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("negative delay %d", seconds)
	}
	unlock := s.guildLocks.Lock(guildID)
	defer unlock()

	var delay *int
	if seconds > 0 {
		delay = &seconds
	}
	ok, err := s.store.SetFixedDelay(guildID, delay)
	if err != nil {
		return fmt.Errorf("failed to set fixed delay: %w", err)
	}
	if !ok {
		return ErrNoChannel
	}
	return nil
}

// SetSpeed changes the guild tier and draws a fresh delay from it.
func (s *Spawner) SetSpeed(guildID, speed string) (int, error) {
	if !reiatsu.IsSpeed(speed) {
		return 0, fmt.Errorf("unknown speed %q", speed)
	}
	unlock := s.guildLocks.Lock(guildID)
	defer unlock()

	delay := s.randomDelay(speed)
	ok, err := s.store.SetSpawnSpeed(guildID, speed, delay)
	if err != nil {
		return 0, fmt.Errorf("failed to set speed: %w", err)
	}
	if !ok {
		return 0, ErrNoChannel
	}
	return delay, nil
}

// Unset removes the guild configuration, deleting a live spawn message first.
func (s *Spawner) Unset(guildID string) error {
	unlock := s.guildLocks.Lock(guildID)
	defer unlock()

	cfg, err := s.store.GetGuildSpawn(guildID)
	if err != nil {
		return fmt.Errorf("failed to read guild spawn: %w", err)
	}
	if cfg == nil {
		return ErrNoChannel
	}
	if err := s.store.DeleteGuildSpawn(guildID); err != nil {
		return fmt.Errorf("failed to delete guild spawn: %w", err)
	}
	if cfg.MessageID != nil && cfg.ChannelID != "" {
		s.deleteMessage(cfg.ChannelID, *cfg.MessageID)
	}
	return nil
}
