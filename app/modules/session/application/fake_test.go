package sessionservice

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// fakeSessionDB is an in-memory SessionDB for service tests. It mirrors the
// store's uniqueness constraints and the atomicity of accept and cancel.
type fakeSessionDB struct {
	sessions map[sharedtypes.SessionID]*sessiondb.Session
	queue    []sessiondb.QueueEntry
	roster   []sessiondb.RosterEntry
	nextID   sharedtypes.SessionID
	nextRow  int64

	failWith      error
	failStatusFor map[sharedtypes.SessionID]error
}

func newFakeSessionDB() *fakeSessionDB {
	return &fakeSessionDB{
		sessions: map[sharedtypes.SessionID]*sessiondb.Session{},
		nextID:   1,
		nextRow:  1,
	}
}

var _ sessiondb.SessionDB = (*fakeSessionDB)(nil)

func (f *fakeSessionDB) CreateSession(_ context.Context, session *sessiondb.Session) error {
	if f.failWith != nil {
		return f.failWith
	}
	session.ID = f.nextID
	f.nextID++
	clone := *session
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeSessionDB) GetSession(_ context.Context, id sharedtypes.SessionID) (*sessiondb.Session, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	session, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: #%d", apperrors.ErrSessionNotFound, id)
	}
	clone := *session
	return &clone, nil
}

func (f *fakeSessionDB) SetAnnouncement(_ context.Context, id sharedtypes.SessionID, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error {
	session, ok := f.sessions[id]
	if !ok {
		return fmt.Errorf("%w: #%d", apperrors.ErrSessionNotFound, id)
	}
	session.ChannelID = channelID
	session.MessageID = messageID
	return nil
}

func (f *fakeSessionDB) UpdateStatusIf(_ context.Context, id sharedtypes.SessionID, from, to sessiondb.Status) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	if err, ok := f.failStatusFor[id]; ok {
		return false, err
	}
	session, ok := f.sessions[id]
	if !ok || session.Status != from {
		return false, nil
	}
	session.Status = to
	return true, nil
}

func (f *fakeSessionDB) CancelSession(_ context.Context, id sharedtypes.SessionID) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	session, ok := f.sessions[id]
	if !ok || session.Status.Terminal() {
		return false, nil
	}
	session.Status = sessiondb.StatusCancelled
	f.queue = withoutSession(f.queue, id, func(e sessiondb.QueueEntry) sharedtypes.SessionID { return e.SessionID })
	f.roster = withoutSession(f.roster, id, func(e sessiondb.RosterEntry) sharedtypes.SessionID { return e.SessionID })
	return true, nil
}

func withoutSession[T any](entries []T, id sharedtypes.SessionID, key func(T) sharedtypes.SessionID) []T {
	out := entries[:0]
	for _, e := range entries {
		if key(e) != id {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeSessionDB) ListActiveByGuild(_ context.Context, guildID sharedtypes.GuildID) ([]sessiondb.Session, error) {
	var out []sessiondb.Session
	for _, s := range f.sessions {
		if s.GuildID == guildID && !s.Status.Terminal() {
			out = append(out, *s)
		}
	}
	sortSessions(out)
	return out, nil
}

func (f *fakeSessionDB) ListActiveByCreator(_ context.Context, creatorID sharedtypes.UserID) ([]sessiondb.Session, error) {
	var out []sessiondb.Session
	for _, s := range f.sessions {
		if s.CreatorID == creatorID && !s.Status.Terminal() {
			out = append(out, *s)
		}
	}
	sortSessions(out)
	return out, nil
}

func (f *fakeSessionDB) ListExpiredOpen(_ context.Context, now time.Time) ([]sessiondb.Session, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []sessiondb.Session
	for _, s := range f.sessions {
		if s.Status == sessiondb.StatusOpen && !s.ScheduledAt.After(now) {
			out = append(out, *s)
		}
	}
	sortSessions(out)
	return out, nil
}

func sortSessions(sessions []sessiondb.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].ScheduledAt.Equal(sessions[j].ScheduledAt) {
			return sessions[i].ScheduledAt.Before(sessions[j].ScheduledAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}

func (f *fakeSessionDB) InsertQueueEntry(_ context.Context, entry *sessiondb.QueueEntry) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, e := range f.queue {
		if e.SessionID == entry.SessionID && e.UserID == entry.UserID {
			return fmt.Errorf("%w: session #%d", apperrors.ErrAlreadyInQueue, entry.SessionID)
		}
	}
	entry.ID = f.nextRow
	f.nextRow++
	f.queue = append(f.queue, *entry)
	return nil
}

func (f *fakeSessionDB) GetQueueEntry(_ context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) (*sessiondb.QueueEntry, error) {
	for _, e := range f.queue {
		if e.SessionID == sessionID && e.UserID == userID {
			clone := e
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: session #%d", apperrors.ErrNotInQueue, sessionID)
}

func (f *fakeSessionDB) DeleteQueueEntry(_ context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	for i, e := range f.queue {
		if e.SessionID == sessionID && e.UserID == userID {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessionDB) SetStreaming(_ context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID, streaming bool) (bool, error) {
	for i, e := range f.queue {
		if e.SessionID == sessionID && e.UserID == userID {
			f.queue[i].IsStreaming = streaming
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessionDB) ListQueue(_ context.Context, sessionID sharedtypes.SessionID) ([]sessiondb.QueueEntry, error) {
	var out []sessiondb.QueueEntry
	for _, e := range f.queue {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeSessionDB) CountQueue(_ context.Context, sessionID sharedtypes.SessionID) (int, error) {
	count := 0
	for _, e := range f.queue {
		if e.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionDB) AcceptQueueEntry(_ context.Context, entry *sessiondb.RosterEntry) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, e := range f.roster {
		if e.SessionID == entry.SessionID && e.UserID == entry.UserID && e.Role == entry.Role {
			return fmt.Errorf("%w: %s as %s", apperrors.ErrAlreadyAccepted, entry.UserID, entry.Role)
		}
	}
	entry.ID = f.nextRow
	f.nextRow++
	f.roster = append(f.roster, *entry)
	for i, e := range f.queue {
		if e.SessionID == entry.SessionID && e.UserID == entry.UserID {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSessionDB) ListRoster(_ context.Context, sessionID sharedtypes.SessionID) ([]sessiondb.RosterEntry, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []sessiondb.RosterEntry
	for _, e := range f.roster {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SelectedAt.Equal(out[j].SelectedAt) {
			return out[i].SelectedAt.Before(out[j].SelectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// fakeProfileDB is the minimal profile store the session service needs:
// profile lookup plus account listing and retrieval.
type fakeProfileDB struct {
	users    map[sharedtypes.UserID]*profiledb.User
	accounts map[sharedtypes.AccountID]*profiledb.GameAccount
}

func newFakeProfileDB() *fakeProfileDB {
	return &fakeProfileDB{
		users:    map[sharedtypes.UserID]*profiledb.User{},
		accounts: map[sharedtypes.AccountID]*profiledb.GameAccount{},
	}
}

var _ profiledb.ProfileDB = (*fakeProfileDB)(nil)

func (f *fakeProfileDB) CreateUser(_ context.Context, user *profiledb.User) error {
	clone := *user
	f.users[user.UserID] = &clone
	return nil
}

func (f *fakeProfileDB) GetUser(_ context.Context, userID sharedtypes.UserID) (*profiledb.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrProfileNotFound, userID)
	}
	clone := *user
	return &clone, nil
}

func (f *fakeProfileDB) CreateAccount(_ context.Context, account *profiledb.GameAccount) error {
	clone := *account
	f.accounts[account.ID] = &clone
	return nil
}

func (f *fakeProfileDB) UpdateAccount(_ context.Context, account *profiledb.GameAccount) error {
	clone := *account
	f.accounts[account.ID] = &clone
	return nil
}

func (f *fakeProfileDB) GetAccountByName(_ context.Context, userID sharedtypes.UserID, name string) (*profiledb.GameAccount, error) {
	for _, acc := range f.accounts {
		if acc.UserID == userID && acc.AccountName == name {
			clone := *acc
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrAccountNotFound, name)
}

func (f *fakeProfileDB) GetAccountByID(_ context.Context, userID sharedtypes.UserID, accountID sharedtypes.AccountID) (*profiledb.GameAccount, error) {
	acc, ok := f.accounts[accountID]
	if !ok || acc.UserID != userID {
		return nil, fmt.Errorf("%w: id %d", apperrors.ErrAccountNotFound, accountID)
	}
	clone := *acc
	return &clone, nil
}

func (f *fakeProfileDB) ListAccounts(_ context.Context, userID sharedtypes.UserID) ([]profiledb.GameAccount, error) {
	var out []profiledb.GameAccount
	for _, acc := range f.accounts {
		if acc.UserID == userID {
			out = append(out, *acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProfileDB) GetPrimaryAccount(_ context.Context, userID sharedtypes.UserID) (*profiledb.GameAccount, error) {
	for _, acc := range f.accounts {
		if acc.UserID == userID && acc.IsPrimary {
			clone := *acc
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: no primary account", apperrors.ErrAccountNotFound)
}

// fakeBus records published topics so tests can assert on the event stream
// without a running subscriber.
type fakeBus struct {
	published []string
	failWith  error
}

func (f *fakeBus) Publish(topic string, _ ...*message.Message) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.published = append(f.published, topic)
	return nil
}

func (f *fakeBus) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	return nil, nil
}

func (f *fakeBus) Close() error { return nil }
