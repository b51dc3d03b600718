package storage

import (
	"database/sql"
	"errors"
	"time"
)

const guildSpawnColumns = "guild_id, channel_id, is_spawn, message_id, last_spawn_at, delay, fixed_delay, spawn_speed"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuildSpawn(row rowScanner) (*GuildSpawnConfig, error) {
	var (
		cfg        GuildSpawnConfig
		messageID  sql.NullString
		lastSpawn  sql.NullInt64
		delay      sql.NullInt64
		fixedDelay sql.NullInt64
	)
	if err := row.Scan(&cfg.GuildID, &cfg.ChannelID, &cfg.IsSpawn, &messageID, &lastSpawn, &delay, &fixedDelay, &cfg.SpawnSpeed); err != nil {
		return nil, err
	}
	cfg.MessageID = stringPtr(messageID)
	cfg.LastSpawnAt = unixPtr(lastSpawn)
	cfg.Delay = intPtr(delay)
	cfg.FixedDelay = intPtr(fixedDelay)
	return &cfg, nil
}

// GetGuildSpawn returns the guild row, or nil when the guild was never configured.
func (s *DBStore) GetGuildSpawn(guildID string) (*GuildSpawnConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, err := scanGuildSpawn(s.queryRow("SELECT "+guildSpawnColumns+" FROM guild_spawn WHERE guild_id = ?", guildID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

// ListGuildSpawns returns every guild row with a configured channel.
func (s *DBStore) ListGuildSpawns() ([]GuildSpawnConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query("SELECT " + guildSpawnColumns + " FROM guild_spawn WHERE channel_id <> '' ORDER BY guild_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []GuildSpawnConfig
	for rows.Next() {
		cfg, err := scanGuildSpawn(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

// SetSpawnChannel creates the guild row on first use, or moves it to another channel.
func (s *DBStore) SetSpawnChannel(guildID, channelID, defaultSpeed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO guild_spawn (guild_id, channel_id, spawn_speed)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET channel_id = excluded.channel_id;`
	_, err := s.exec(query, guildID, channelID, defaultSpeed)
	return err
}

// DeleteGuildSpawn removes the guild row.
func (s *DBStore) DeleteGuildSpawn(guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.exec("DELETE FROM guild_spawn WHERE guild_id = ?", guildID)
	return err
}

// SetSpawnSpeed changes the tier and stores a delay drawn from the new tier.
// It returns false when the guild has no row.
func (s *DBStore) SetSpawnSpeed(guildID, speed string, delay int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.exec("UPDATE guild_spawn SET spawn_speed = ?, delay = ? WHERE guild_id = ?", speed, delay, guildID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetFixedDelay sets the operator delay override. nil clears it.
// It returns false when the guild has no row.
func (s *DBStore) SetFixedDelay(guildID string, delay *int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.exec("UPDATE guild_spawn SET fixed_delay = ? WHERE guild_id = ?", nullInt(delay), guildID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetDelay stores the delay of the current cycle.
func (s *DBStore) SetDelay(guildID string, delay int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.exec("UPDATE guild_spawn SET delay = ? WHERE guild_id = ?", delay, guildID)
	return err
}

// MarkSpawned records a live spawn. It only succeeds when no spawn is live.
func (s *DBStore) MarkSpawned(guildID, messageID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(
		"UPDATE guild_spawn SET is_spawn = ?, message_id = ?, last_spawn_at = ? WHERE guild_id = ? AND is_spawn = ?",
		true, messageID, at.Unix(), guildID, false,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ClaimSpawn clears the live spawn if it is still messageID, and stores the next delay.
// Only one caller per spawn gets true.
func (s *DBStore) ClaimSpawn(guildID, messageID string, nextDelay int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(
		"UPDATE guild_spawn SET is_spawn = ?, message_id = NULL, delay = ? WHERE guild_id = ? AND is_spawn = ? AND message_id = ?",
		false, nextDelay, guildID, true, messageID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ResetSpawn unconditionally clears the live spawn.
func (s *DBStore) ResetSpawn(guildID string, nextDelay int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.exec("UPDATE guild_spawn SET is_spawn = ?, message_id = NULL, delay = ? WHERE guild_id = ?", false, nextDelay, guildID)
	return err
}
