package profiledb

import (
	"context"

	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// ProfileDB is the storage contract for user profiles and game accounts.
type ProfileDB interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID sharedtypes.UserID) (*User, error)

	CreateAccount(ctx context.Context, account *GameAccount) error
	UpdateAccount(ctx context.Context, account *GameAccount) error
	GetAccountByName(ctx context.Context, userID sharedtypes.UserID, name string) (*GameAccount, error)
	GetAccountByID(ctx context.Context, userID sharedtypes.UserID, accountID sharedtypes.AccountID) (*GameAccount, error)
	ListAccounts(ctx context.Context, userID sharedtypes.UserID) ([]GameAccount, error)
	GetPrimaryAccount(ctx context.Context, userID sharedtypes.UserID) (*GameAccount, error)
}
