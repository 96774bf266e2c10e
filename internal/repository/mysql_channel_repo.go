package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nikhil/staffhub/internal/models"
)

const channelColumns = `channel_id, channel_name, channel_type, description, created_by, is_active, created_at, updated_at`

type MySQLChannelRepo struct {
	db *sql.DB
}

func NewMySQLChannelRepo(db *sql.DB) *MySQLChannelRepo {
	return &MySQLChannelRepo{db: db}
}

func scanChannel(row interface{ Scan(...interface{}) error }) (*models.Channel, error) {
	var c models.Channel
	var chType string
	if err := row.Scan(&c.ChannelID, &c.Name, &chType, &c.Description, &c.CreatedBy, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Type = models.ChannelType(chType)
	c.Members = []string{}
	return &c, nil
}

func (r *MySQLChannelRepo) Create(ctx context.Context, ch *models.Channel, pairKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op once committed

	var pair sql.NullString
	if pairKey != "" {
		pair = sql.NullString{String: pairKey, Valid: true}
	}

	query := `
		INSERT INTO channels (channel_id, channel_name, channel_type, description, created_by, pair_key, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query, ch.ChannelID, ch.Name, string(ch.Type), ch.Description, ch.CreatedBy,
		pair, ch.IsActive, ch.CreatedAt, ch.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert channel: %w", err)
	}

	memberQuery := `INSERT INTO channel_members (channel_id, user_id, joined_at) VALUES (?, ?, ?)`
	for _, userID := range ch.Members {
		if _, err := tx.ExecContext(ctx, memberQuery, ch.ChannelID, userID, ch.CreatedAt); err != nil {
			return fmt.Errorf("insert channel member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit channel: %w", err)
	}
	return nil
}

func (r *MySQLChannelRepo) FindActiveByID(ctx context.Context, id string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE channel_id = ? AND is_active = 1`
	return r.findOne(ctx, query, id)
}

func (r *MySQLChannelRepo) FindByPairKey(ctx context.Context, pairKey string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE pair_key = ? AND channel_type = ? AND is_active = 1`
	return r.findOne(ctx, query, pairKey, string(models.ChannelPrivate))
}

func (r *MySQLChannelRepo) findOne(ctx context.Context, query string, args ...interface{}) (*models.Channel, error) {
	ch, err := scanChannel(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find channel: %w", err)
	}

	channels := []models.Channel{*ch}
	if err := r.attachMembers(ctx, channels); err != nil {
		return nil, err
	}
	return &channels[0], nil
}

func (r *MySQLChannelRepo) ListActive(ctx context.Context) ([]models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE is_active = 1 ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *MySQLChannelRepo) ListActiveForMember(ctx context.Context, userID string) ([]models.Channel, error) {
	query := `
		SELECT c.channel_id, c.channel_name, c.channel_type, c.description, c.created_by, c.is_active, c.created_at, c.updated_at
		FROM channels c
		INNER JOIN channel_members cm ON cm.channel_id = c.channel_id
		WHERE cm.user_id = ? AND c.is_active = 1
		ORDER BY c.created_at
	`
	return r.list(ctx, query, userID)
}

func (r *MySQLChannelRepo) list(ctx context.Context, query string, args ...interface{}) ([]models.Channel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	if err := r.attachMembers(ctx, channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// attachMembers loads members for every channel in one query, keeping
// insertion order.
func (r *MySQLChannelRepo) attachMembers(ctx context.Context, channels []models.Channel) error {
	if len(channels) == 0 {
		return nil
	}

	ids := make([]string, len(channels))
	index := make(map[string]int, len(channels))
	for i, ch := range channels {
		ids[i] = ch.ChannelID
		index[ch.ChannelID] = i
	}

	query := `SELECT channel_id, user_id FROM channel_members WHERE channel_id IN (` + placeholders(len(ids)) + `) ORDER BY channel_member_id`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query channel members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var channelID, userID string
		if err := rows.Scan(&channelID, &userID); err != nil {
			return fmt.Errorf("scan channel member: %w", err)
		}
		if i, ok := index[channelID]; ok {
			channels[i].Members = append(channels[i].Members, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate channel members: %w", err)
	}
	return nil
}

func (r *MySQLChannelRepo) ListMemberChannelIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT cm.channel_id
		FROM channel_members cm
		INNER JOIN channels c ON c.channel_id = cm.channel_id
		WHERE cm.user_id = ? AND c.is_active = 1
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query member channels: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member channel: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member channels: %w", err)
	}
	return ids, nil
}

func (r *MySQLChannelRepo) AddMember(ctx context.Context, channelID, userID string, at time.Time) (bool, error) {
	query := `INSERT IGNORE INTO channel_members (channel_id, user_id, joined_at) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, channelID, userID, at)
	if err != nil {
		return false, fmt.Errorf("add channel member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add channel member rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *MySQLChannelRepo) RemoveMember(ctx context.Context, channelID, userID string) (bool, error) {
	query := `DELETE FROM channel_members WHERE channel_id = ? AND user_id = ?`
	result, err := r.db.ExecContext(ctx, query, channelID, userID)
	if err != nil {
		return false, fmt.Errorf("remove channel member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove channel member rows affected: %w", err)
	}
	return n > 0, nil
}
