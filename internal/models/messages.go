package models

import "time"

type Message struct {
	MessageID   string       `json:"id"`
	ChannelID   string       `json:"channelId"`
	AuthorID    string       `json:"authorId"`
	Author      *UserSummary `json:"author,omitempty"`
	Text        string       `json:"text"`
	Attachments []string     `json:"attachments"`
	IsEdited    bool         `json:"isEdited"`
	EditedAt    *time.Time   `json:"editedAt"`
	CreatedAt   time.Time    `json:"createdAt"`
}
