package profileservice

import (
	"context"
	"fmt"
	"sort"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// fakeProfileDB is an in-memory ProfileDB for service tests. It mirrors the
// store's uniqueness and primary-flag behavior.
type fakeProfileDB struct {
	users    map[sharedtypes.UserID]*profiledb.User
	accounts map[sharedtypes.AccountID]*profiledb.GameAccount
	nextID   sharedtypes.AccountID

	failWith error
}

func newFakeProfileDB() *fakeProfileDB {
	return &fakeProfileDB{
		users:    map[sharedtypes.UserID]*profiledb.User{},
		accounts: map[sharedtypes.AccountID]*profiledb.GameAccount{},
		nextID:   1,
	}
}

var _ profiledb.ProfileDB = (*fakeProfileDB)(nil)

func (f *fakeProfileDB) CreateUser(_ context.Context, user *profiledb.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.users[user.UserID]; ok {
		return fmt.Errorf("%w: %s", apperrors.ErrProfileExists, user.UserID)
	}
	clone := *user
	f.users[user.UserID] = &clone
	return nil
}

func (f *fakeProfileDB) GetUser(_ context.Context, userID sharedtypes.UserID) (*profiledb.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	user, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrProfileNotFound, userID)
	}
	clone := *user
	return &clone, nil
}

func (f *fakeProfileDB) CreateAccount(_ context.Context, account *profiledb.GameAccount) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.accounts {
		if existing.UserID == account.UserID && existing.AccountName == account.AccountName {
			return fmt.Errorf("%w: account %q", apperrors.ErrDuplicateEntry, account.AccountName)
		}
	}
	if account.IsPrimary {
		f.unsetPrimaries(account.UserID, 0)
	}
	account.ID = f.nextID
	f.nextID++
	clone := *account
	f.accounts[account.ID] = &clone
	return nil
}

func (f *fakeProfileDB) UpdateAccount(_ context.Context, account *profiledb.GameAccount) error {
	if f.failWith != nil {
		return f.failWith
	}
	existing, ok := f.accounts[account.ID]
	if !ok || existing.UserID != account.UserID {
		return fmt.Errorf("%w: id %d", apperrors.ErrAccountNotFound, account.ID)
	}
	if account.IsPrimary {
		f.unsetPrimaries(account.UserID, account.ID)
	}
	clone := *account
	f.accounts[account.ID] = &clone
	return nil
}

func (f *fakeProfileDB) unsetPrimaries(userID sharedtypes.UserID, keep sharedtypes.AccountID) {
	for id, acc := range f.accounts {
		if acc.UserID == userID && id != keep {
			acc.IsPrimary = false
		}
	}
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
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []profiledb.GameAccount
	for _, acc := range f.accounts {
		if acc.UserID == userID {
			out = append(out, *acc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].AccountName < out[j].AccountName
	})
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
