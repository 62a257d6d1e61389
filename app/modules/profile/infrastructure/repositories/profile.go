package profiledb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/dbutil"
)

// ProfileDBImpl is the bun-backed implementation of ProfileDB.
type ProfileDBImpl struct {
	DB *bun.DB
}

var _ ProfileDB = (*ProfileDBImpl)(nil)

// CreateUser inserts a new profile. A second insert for the same user fails
// with ErrProfileExists.
func (db *ProfileDBImpl) CreateUser(ctx context.Context, user *User) error {
	slog.DebugContext(ctx, "Executing ProfileDBImpl.CreateUser", slog.String("user_id", string(user.UserID)))

	if _, err := db.DB.NewInsert().Model(user).Exec(ctx); err != nil {
		if dbutil.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", apperrors.ErrProfileExists, user.UserID)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser fetches a profile by platform ID.
func (db *ProfileDBImpl) GetUser(ctx context.Context, userID sharedtypes.UserID) (*User, error) {
	user := new(User)
	err := db.DB.NewSelect().
		Model(user).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if dbutil.IsNoRows(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrProfileNotFound, userID)
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

// CreateAccount inserts a game account. When the account is flagged primary,
// all other accounts of the owner lose the flag in the same transaction so at
// most one primary exists per profile.
func (db *ProfileDBImpl) CreateAccount(ctx context.Context, account *GameAccount) error {
	slog.DebugContext(ctx, "Executing ProfileDBImpl.CreateAccount",
		slog.String("user_id", string(account.UserID)),
		slog.String("account_name", account.AccountName),
	)

	err := db.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if account.IsPrimary {
			if err := unsetOtherPrimaries(ctx, tx, account.UserID, 0); err != nil {
				return err
			}
		}
		return tx.NewInsert().
			Model(account).
			ExcludeColumn("id").
			Returning("id").
			Scan(ctx, &account.ID)
	})
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return fmt.Errorf("%w: account %q", apperrors.ErrDuplicateEntry, account.AccountName)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// UpdateAccount persists edits to an existing account, keeping the
// one-primary invariant.
func (db *ProfileDBImpl) UpdateAccount(ctx context.Context, account *GameAccount) error {
	err := db.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if account.IsPrimary {
			if err := unsetOtherPrimaries(ctx, tx, account.UserID, account.ID); err != nil {
				return err
			}
		}
		res, err := tx.NewUpdate().
			Model(account).
			WherePK().
			Where("user_id = ?", account.UserID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: id %d", apperrors.ErrAccountNotFound, account.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

func unsetOtherPrimaries(ctx context.Context, tx bun.Tx, userID sharedtypes.UserID, keep sharedtypes.AccountID) error {
	q := tx.NewUpdate().
		Model((*GameAccount)(nil)).
		Set("is_primary = ?", false).
		Where("user_id = ?", userID)
	if keep != 0 {
		q = q.Where("id != ?", keep)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("failed to unset primary flags: %w", err)
	}
	return nil
}

// GetAccountByName fetches an owner's account by its display name.
func (db *ProfileDBImpl) GetAccountByName(ctx context.Context, userID sharedtypes.UserID, name string) (*GameAccount, error) {
	account := new(GameAccount)
	err := db.DB.NewSelect().
		Model(account).
		Where("user_id = ?", userID).
		Where("account_name = ?", name).
		Scan(ctx)
	if err != nil {
		if dbutil.IsNoRows(err) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrAccountNotFound, name)
		}
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	return account, nil
}

// GetAccountByID fetches an account and verifies ownership.
func (db *ProfileDBImpl) GetAccountByID(ctx context.Context, userID sharedtypes.UserID, accountID sharedtypes.AccountID) (*GameAccount, error) {
	account := new(GameAccount)
	err := db.DB.NewSelect().
		Model(account).
		Where("id = ?", accountID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if dbutil.IsNoRows(err) {
			return nil, fmt.Errorf("%w: id %d", apperrors.ErrAccountNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	return account, nil
}

// ListAccounts returns the owner's accounts, primary first then by name.
func (db *ProfileDBImpl) ListAccounts(ctx context.Context, userID sharedtypes.UserID) ([]GameAccount, error) {
	var accounts []GameAccount
	err := db.DB.NewSelect().
		Model(&accounts).
		Where("user_id = ?", userID).
		Order("is_primary DESC", "account_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// GetPrimaryAccount returns the account flagged primary, or ErrAccountNotFound
// when the user has none.
func (db *ProfileDBImpl) GetPrimaryAccount(ctx context.Context, userID sharedtypes.UserID) (*GameAccount, error) {
	account := new(GameAccount)
	err := db.DB.NewSelect().
		Model(account).
		Where("user_id = ?", userID).
		Where("is_primary = ?", true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if dbutil.IsNoRows(err) {
			return nil, fmt.Errorf("%w: no primary account", apperrors.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to fetch primary account: %w", err)
	}
	return account, nil
}
