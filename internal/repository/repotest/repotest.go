// Package repotest provides in-memory repositories for service and engine
// tests. They honour the same contracts as the MySQL implementations:
// lookups return (nil, nil) when absent and a taken private pair yields
// repository.ErrDuplicate.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/repository"
)

type Users struct {
	mu    sync.RWMutex
	users map[string]models.User
	Err   error
}

func NewUsers(users ...models.User) *Users {
	u := &Users{users: map[string]models.User{}}
	for _, user := range users {
		u.Put(user)
	}
	return u
}

func (u *Users) Put(user models.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[user.UserID] = user
}

func (u *Users) FindByID(_ context.Context, id string) (*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.Err != nil {
		return nil, u.Err
	}
	user, ok := u.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.Err != nil {
		return nil, u.Err
	}
	for _, user := range u.users {
		if user.Email == email {
			user := user
			return &user, nil
		}
	}
	return nil, nil
}

func (u *Users) FindByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.Err != nil {
		return nil, u.Err
	}
	out := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if user, ok := u.users[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

func (u *Users) ListActiveExcludingRole(_ context.Context, role models.Role) ([]models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.Err != nil {
		return nil, u.Err
	}
	list := []models.User{}
	for _, user := range u.users {
		if user.IsActive() && user.Role != role {
			list = append(list, user)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].FullName() < list[j].FullName() })
	return list, nil
}

type storedChannel struct {
	channel models.Channel
	pairKey string
}

type Channels struct {
	mu       sync.Mutex
	channels map[string]*storedChannel
	order    []string
	Err      error
}

func NewChannels() *Channels {
	return &Channels{channels: map[string]*storedChannel{}}
}

func clone(ch models.Channel) *models.Channel {
	ch.Members = append([]string{}, ch.Members...)
	return &ch
}

func (c *Channels) Create(_ context.Context, ch *models.Channel, pairKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	if pairKey != "" {
		for _, s := range c.channels {
			if s.pairKey == pairKey {
				return repository.ErrDuplicate
			}
		}
	}
	c.channels[ch.ChannelID] = &storedChannel{channel: *clone(*ch), pairKey: pairKey}
	c.order = append(c.order, ch.ChannelID)
	return nil
}

func (c *Channels) FindActiveByID(_ context.Context, id string) (*models.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	s, ok := c.channels[id]
	if !ok || !s.channel.IsActive {
		return nil, nil
	}
	return clone(s.channel), nil
}

func (c *Channels) FindByPairKey(_ context.Context, pairKey string) (*models.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	for _, s := range c.channels {
		if s.pairKey == pairKey && s.channel.Type == models.ChannelPrivate && s.channel.IsActive {
			return clone(s.channel), nil
		}
	}
	return nil, nil
}

func (c *Channels) ListActive(_ context.Context) ([]models.Channel, error) {
	return c.filter(func(models.Channel) bool { return true })
}

func (c *Channels) ListActiveForMember(_ context.Context, userID string) ([]models.Channel, error) {
	return c.filter(func(ch models.Channel) bool { return ch.HasMember(userID) })
}

func (c *Channels) filter(keep func(models.Channel) bool) ([]models.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := []models.Channel{}
	for _, id := range c.order {
		ch := c.channels[id].channel
		if ch.IsActive && keep(ch) {
			out = append(out, *clone(ch))
		}
	}
	return out, nil
}

func (c *Channels) ListMemberChannelIDs(ctx context.Context, userID string) ([]string, error) {
	channels, err := c.ListActiveForMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(channels))
	for i, ch := range channels {
		ids[i] = ch.ChannelID
	}
	return ids, nil
}

func (c *Channels) AddMember(_ context.Context, channelID, userID string, _ time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	s, ok := c.channels[channelID]
	if !ok || s.channel.HasMember(userID) {
		return false, nil
	}
	s.channel.Members = append(s.channel.Members, userID)
	return true, nil
}

func (c *Channels) RemoveMember(_ context.Context, channelID, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	s, ok := c.channels[channelID]
	if !ok {
		return false, nil
	}
	for i, m := range s.channel.Members {
		if m == userID {
			s.channel.Members = append(s.channel.Members[:i], s.channel.Members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Count is the number of stored channels, active or not.
func (c *Channels) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

type Messages struct {
	mu       sync.Mutex
	messages []models.Message
	users    *Users
	Err      error
}

// NewMessages joins author summaries from users when it is non-nil.
func NewMessages(users *Users) *Messages {
	return &Messages{users: users}
}

func (m *Messages) withAuthor(msg models.Message) *models.Message {
	msg.Attachments = append([]string{}, msg.Attachments...)
	if m.users != nil {
		if u, _ := m.users.FindByID(context.Background(), msg.AuthorID); u != nil {
			summary := u.Summary()
			msg.Author = &summary
		}
	}
	return &msg
}

func (m *Messages) Create(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *Messages) FindByID(_ context.Context, id string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, msg := range m.messages {
		if msg.MessageID == id {
			return m.withAuthor(msg), nil
		}
	}
	return nil, nil
}

func (m *Messages) ListRecent(_ context.Context, channelID string, limit, offset int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []models.Message{}
	skipped := 0
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if m.messages[i].ChannelID != channelID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, *m.withAuthor(m.messages[i]))
	}
	return out, nil
}

func (m *Messages) UpdateText(_ context.Context, id, text string, editedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for i := range m.messages {
		if m.messages[i].MessageID == id {
			at := editedAt
			m.messages[i].Text = text
			m.messages[i].IsEdited = true
			m.messages[i].EditedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *Messages) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for i := range m.messages {
		if m.messages[i].MessageID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Len is the number of stored messages across all channels.
func (m *Messages) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

type Attendance struct {
	mu      sync.Mutex
	records []models.AttendanceRecord
	Err     error
}

func NewAttendance() *Attendance {
	return &Attendance{}
}

func (a *Attendance) FindOpen(_ context.Context, userID string) (*models.AttendanceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	for i := len(a.records) - 1; i >= 0; i-- {
		if a.records[i].UserID == userID && a.records[i].Open() {
			rec := a.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (a *Attendance) Create(_ context.Context, rec *models.AttendanceRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.records = append(a.records, *rec)
	return nil
}

func (a *Attendance) CloseOpen(_ context.Context, userID string, at time.Time) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return false, a.Err
	}
	closed := false
	for i := range a.records {
		if a.records[i].UserID == userID && a.records[i].Open() {
			t := at
			a.records[i].CheckOutTime = &t
			closed = true
		}
	}
	return closed, nil
}

var (
	_ repository.UserRepository       = (*Users)(nil)
	_ repository.ChannelRepository    = (*Channels)(nil)
	_ repository.MessageRepository    = (*Messages)(nil)
	_ repository.AttendanceRepository = (*Attendance)(nil)
)
