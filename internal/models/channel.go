package models

import (
	"sort"
	"time"
)

type ChannelType string

const (
	ChannelRegular ChannelType = "regular"
	ChannelNotice  ChannelType = "notice"
	ChannelPrivate ChannelType = "private"
)

func (t ChannelType) Valid() bool {
	return t == ChannelRegular || t == ChannelNotice || t == ChannelPrivate
}

// Channel represents a chat room. Members keep insertion order for display.
type Channel struct {
	ChannelID   string      `json:"id"`
	Name        string      `json:"name"`
	Type        ChannelType `json:"type"`
	Description string      `json:"description"`
	CreatedBy   string      `json:"createdBy"`
	Members     []string    `json:"members"`
	IsActive    bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (c *Channel) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// PairKey identifies a private channel by its unordered member pair.
func PairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + ":" + pair[1]
}
