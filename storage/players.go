package storage

import (
	"database/sql"
	"errors"
)

const playerColumns = "user_id, points, class, bonus_counter, active_skill, skill_guild_id, decoy_message_id, decoy_channel_id, last_class_change, last_skill_at"

func scanPlayer(row rowScanner) (*PlayerReiatsu, error) {
	var (
		p           PlayerReiatsu
		class       sql.NullString
		skillGuild  sql.NullString
		decoyMsg    sql.NullString
		decoyChan   sql.NullString
		classChange sql.NullInt64
		skillAt     sql.NullInt64
	)
	err := row.Scan(&p.UserID, &p.Points, &class, &p.BonusCounter, &p.ActiveSkill,
		&skillGuild, &decoyMsg, &decoyChan, &classChange, &skillAt)
	if err != nil {
		return nil, err
	}
	p.Class = class.String
	p.SkillGuildID = stringPtr(skillGuild)
	p.DecoyMessageID = stringPtr(decoyMsg)
	p.DecoyChannelID = stringPtr(decoyChan)
	p.LastClassChange = unixPtr(classChange)
	p.LastSkillAt = unixPtr(skillAt)
	return &p, nil
}

func scanPlayers(rows *sql.Rows) ([]PlayerReiatsu, error) {
	defer rows.Close()
	var players []PlayerReiatsu
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// GetPlayer returns the player, or nil if the user has no row yet.
func (s *DBStore) GetPlayer(userID string) (*PlayerReiatsu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanPlayer(s.queryRow("SELECT "+playerColumns+" FROM reiatsu_players WHERE user_id = ?", userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// SavePlayer inserts or fully overwrites the player row.
func (s *DBStore) SavePlayer(p *PlayerReiatsu) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var class sql.NullString
	if p.Class != "" {
		class = sql.NullString{String: p.Class, Valid: true}
	}
	query := `
		INSERT INTO reiatsu_players (` + playerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			points = excluded.points,
			class = excluded.class,
			bonus_counter = excluded.bonus_counter,
			active_skill = excluded.active_skill,
			skill_guild_id = excluded.skill_guild_id,
			decoy_message_id = excluded.decoy_message_id,
			decoy_channel_id = excluded.decoy_channel_id,
			last_class_change = excluded.last_class_change,
			last_skill_at = excluded.last_skill_at;`
	_, err := s.exec(query, p.UserID, p.Points, class, p.BonusCounter, p.ActiveSkill,
		nullString(p.SkillGuildID), nullString(p.DecoyMessageID), nullString(p.DecoyChannelID),
		nullUnix(p.LastClassChange), nullUnix(p.LastSkillAt))
	return err
}

// GetLeaderboard returns the players with the most points.
func (s *DBStore) GetLeaderboard(limit int) ([]PlayerReiatsu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query("SELECT "+playerColumns+" FROM reiatsu_players WHERE points > 0 ORDER BY points DESC, user_id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	return scanPlayers(rows)
}

// --- Decoys ---

// ListDecoyCandidates returns players of class with an armed skill and no live decoy.
func (s *DBStore) ListDecoyCandidates(class string) ([]PlayerReiatsu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query(
		"SELECT "+playerColumns+" FROM reiatsu_players WHERE class = ? AND active_skill = ? AND decoy_message_id IS NULL AND skill_guild_id IS NOT NULL",
		class, true,
	)
	if err != nil {
		return nil, err
	}
	return scanPlayers(rows)
}

// FindDecoyOwner returns the owner of a live decoy message, or nil.
func (s *DBStore) FindDecoyOwner(messageID string) (*PlayerReiatsu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanPlayer(s.queryRow("SELECT "+playerColumns+" FROM reiatsu_players WHERE decoy_message_id = ?", messageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// SetDecoy records a live decoy for userID, unless one is already live.
func (s *DBStore) SetDecoy(userID, channelID, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(
		"UPDATE reiatsu_players SET decoy_message_id = ?, decoy_channel_id = ? WHERE user_id = ? AND decoy_message_id IS NULL",
		messageID, channelID, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ResolveDecoy pays the owner and clears the decoy and the armed skill in one statement.
// Only one caller per decoy gets true.
func (s *DBStore) ResolveDecoy(userID, messageID string, gain int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.exec(
		`UPDATE reiatsu_players
		SET points = points + ?, decoy_message_id = NULL, decoy_channel_id = NULL, active_skill = ?
		WHERE user_id = ? AND decoy_message_id = ?`,
		gain, false, userID, messageID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
