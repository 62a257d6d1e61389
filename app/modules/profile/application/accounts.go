package profileservice

import (
	"context"
	"log/slog"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// RankPair is an optional (rank, division) input for one role category.
// Either both fields are set or neither is.
type RankPair struct {
	Rank     *gamerules.Rank
	Division *gamerules.Division
}

func (p RankPair) validate(field string) error {
	if p.Rank == nil && p.Division == nil {
		return nil
	}
	if p.Rank == nil || p.Division == nil {
		return apperrors.Validationf(field, "rank and division must be given together")
	}
	if !gamerules.ValidRank(*p.Rank) {
		return apperrors.Validationf(field, "%q is not a valid rank", *p.Rank)
	}
	if !gamerules.ValidDivision(*p.Division) {
		return apperrors.Validationf(field, "division must be between 1 and 5")
	}
	return nil
}

// AccountInput is the payload for AddAccount.
type AccountInput struct {
	UserID    sharedtypes.UserID
	Name      string
	IsPrimary bool
	Tank      RankPair
	DPS       RankPair
	Support   RankPair
	Alt       RankPair
}

// AccountPatch carries partial edits for EditAccount; nil fields are left
// untouched.
type AccountPatch struct {
	IsPrimary *bool
	Tank      RankPair
	DPS       RankPair
	Support   RankPair
	Alt       RankPair
}

// AddAccount creates a game account for an existing profile.
func (s *ProfileService) AddAccount(ctx context.Context, input AccountInput) (*profiledb.GameAccount, error) {
	s.metrics.RecordOperationAttempt(ctx, "add_account", serviceName)
	defer s.timeOperation(ctx, "add_account")()

	if input.Name == "" {
		return nil, apperrors.Validationf("account_name", "must not be empty")
	}
	for _, pair := range []struct {
		field string
		p     RankPair
	}{
		{"tank", input.Tank}, {"dps", input.DPS}, {"support", input.Support}, {"alt", input.Alt},
	} {
		if err := pair.p.validate(pair.field); err != nil {
			return nil, err
		}
	}

	// Accounts hang off a profile; never auto-create one.
	if _, err := s.ProfileDB.GetUser(ctx, input.UserID); err != nil {
		return nil, err
	}

	account := &profiledb.GameAccount{
		UserID:      input.UserID,
		AccountName: input.Name,
		IsPrimary:   input.IsPrimary,
	}
	applyPair(&account.TankRank, &account.TankDivision, input.Tank)
	applyPair(&account.DPSRank, &account.DPSDivision, input.DPS)
	applyPair(&account.SupportRank, &account.SupportDivision, input.Support)
	applyPair(&account.AltRank, &account.AltDivision, input.Alt)

	if err := s.ProfileDB.CreateAccount(ctx, account); err != nil {
		s.metrics.RecordOperationFailure(ctx, "add_account", serviceName)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Account added",
		slog.String("user_id", string(input.UserID)),
		slog.String("account_name", input.Name),
		slog.Bool("is_primary", input.IsPrimary),
	)
	s.metrics.RecordOperationSuccess(ctx, "add_account", serviceName)
	return account, nil
}

// EditAccount applies a partial update to an account identified by owner and
// display name.
func (s *ProfileService) EditAccount(ctx context.Context, userID sharedtypes.UserID, name string, patch AccountPatch) (*profiledb.GameAccount, error) {
	s.metrics.RecordOperationAttempt(ctx, "edit_account", serviceName)
	defer s.timeOperation(ctx, "edit_account")()

	for _, pair := range []struct {
		field string
		p     RankPair
	}{
		{"tank", patch.Tank}, {"dps", patch.DPS}, {"support", patch.Support}, {"alt", patch.Alt},
	} {
		if err := pair.p.validate(pair.field); err != nil {
			return nil, err
		}
	}

	account, err := s.ProfileDB.GetAccountByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	if patch.IsPrimary != nil {
		account.IsPrimary = *patch.IsPrimary
	}
	applyPair(&account.TankRank, &account.TankDivision, patch.Tank)
	applyPair(&account.DPSRank, &account.DPSDivision, patch.DPS)
	applyPair(&account.SupportRank, &account.SupportDivision, patch.Support)
	applyPair(&account.AltRank, &account.AltDivision, patch.Alt)

	if err := s.ProfileDB.UpdateAccount(ctx, account); err != nil {
		s.metrics.RecordOperationFailure(ctx, "edit_account", serviceName)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Account updated",
		slog.String("user_id", string(userID)),
		slog.String("account_name", name),
	)
	s.metrics.RecordOperationSuccess(ctx, "edit_account", serviceName)
	return account, nil
}

// ListAccounts returns the user's accounts, primary first.
func (s *ProfileService) ListAccounts(ctx context.Context, userID sharedtypes.UserID) ([]profiledb.GameAccount, error) {
	return s.ProfileDB.ListAccounts(ctx, userID)
}

// PrimaryAccount returns the user's primary account, if one is flagged.
func (s *ProfileService) PrimaryAccount(ctx context.Context, userID sharedtypes.UserID) (*profiledb.GameAccount, error) {
	return s.ProfileDB.GetPrimaryAccount(ctx, userID)
}

func applyPair(rank *gamerules.Rank, div *gamerules.Division, pair RankPair) {
	if pair.Rank != nil {
		*rank = *pair.Rank
	}
	if pair.Division != nil {
		*div = *pair.Division
	}
}
