package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nikhil/staffhub/internal/models"
)

type MySQLMessageRepo struct {
	db *sql.DB
}

func NewMySQLMessageRepo(db *sql.DB) *MySQLMessageRepo {
	return &MySQLMessageRepo{db: db}
}

const messageSelect = `
	SELECT m.message_id, m.channel_id, m.user_id, m.content, m.attachments, m.is_edited, m.edited_at, m.created_at,
	       COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), COALESCE(u.role, '')
	FROM messages m
	LEFT JOIN users u ON u.user_id = m.user_id
`

func scanMessage(row interface{ Scan(...interface{}) error }) (*models.Message, error) {
	var m models.Message
	var attachments []byte
	var editedAt sql.NullTime
	var first, last, role string
	if err := row.Scan(&m.MessageID, &m.ChannelID, &m.AuthorID, &m.Text, &attachments, &m.IsEdited, &editedAt, &m.CreatedAt,
		&first, &last, &role); err != nil {
		return nil, err
	}

	m.Attachments = []string{}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &m.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	if editedAt.Valid {
		t := editedAt.Time
		m.EditedAt = &t
	}
	m.Author = &models.UserSummary{UserID: m.AuthorID, FirstName: first, LastName: last, Role: models.Role(role)}
	return &m, nil
}

func (r *MySQLMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	encoded, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}

	query := `
		INSERT INTO messages (message_id, channel_id, user_id, content, attachments, is_edited, edited_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query, msg.MessageID, msg.ChannelID, msg.AuthorID, msg.Text, encoded,
		msg.IsEdited, msg.EditedAt, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MySQLMessageRepo) FindByID(ctx context.Context, id string) (*models.Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx, messageSelect+` WHERE m.message_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}
	return m, nil
}

func (r *MySQLMessageRepo) ListRecent(ctx context.Context, channelID string, limit, offset int) ([]models.Message, error) {
	query := messageSelect + ` WHERE m.channel_id = ? ORDER BY m.created_at DESC, m.message_id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, channelID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func (r *MySQLMessageRepo) UpdateText(ctx context.Context, id, text string, editedAt time.Time) (bool, error) {
	query := `UPDATE messages SET content = ?, is_edited = 1, edited_at = ? WHERE message_id = ?`
	result, err := r.db.ExecContext(ctx, query, text, editedAt, id)
	if err != nil {
		return false, fmt.Errorf("update message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update message rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *MySQLMessageRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE message_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete message rows affected: %w", err)
	}
	return n > 0, nil
}
