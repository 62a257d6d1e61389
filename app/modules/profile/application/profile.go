package profileservice

import (
	"context"
	"fmt"
	"log/slog"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/timeutil"
)

// CreateProfile registers a new user profile. Profiles are only ever created
// here, on the explicit setup command; the identifier is immutable afterwards.
func (s *ProfileService) CreateProfile(ctx context.Context, userID sharedtypes.UserID, username, timezone string, roles []gamerules.Role) (*profiledb.User, error) {
	s.metrics.RecordOperationAttempt(ctx, "create_profile", serviceName)
	defer s.timeOperation(ctx, "create_profile")()

	if username == "" {
		return nil, apperrors.Validationf("username", "must not be empty")
	}
	if !timeutil.ValidateTimezone(timezone) {
		return nil, apperrors.Validationf("timezone", "%q is not a recognized IANA timezone", timezone)
	}
	if len(roles) == 0 {
		return nil, apperrors.Validationf("preferred_roles", "select at least one role")
	}
	seen := map[gamerules.Role]bool{}
	for _, role := range roles {
		if !gamerules.ValidRole(role) {
			return nil, apperrors.Validationf("preferred_roles", "%q is not a valid role", role)
		}
		if seen[role] {
			return nil, apperrors.Validationf("preferred_roles", "%q listed twice", role)
		}
		seen[role] = true
	}

	user := &profiledb.User{
		UserID:         userID,
		Username:       username,
		PreferredRoles: sharedtypes.RoleList(roles),
		Timezone:       timezone,
	}
	if err := s.ProfileDB.CreateUser(ctx, user); err != nil {
		s.metrics.RecordOperationFailure(ctx, "create_profile", serviceName)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Profile created",
		slog.String("user_id", string(userID)),
		slog.String("timezone", timezone),
	)
	s.metrics.RecordOperationSuccess(ctx, "create_profile", serviceName)
	return user, nil
}

// GetProfile returns the profile together with its accounts, primary first.
func (s *ProfileService) GetProfile(ctx context.Context, userID sharedtypes.UserID) (*profiledb.User, error) {
	user, err := s.ProfileDB.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	accounts, err := s.ProfileDB.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts for profile: %w", err)
	}
	user.Accounts = make([]*profiledb.GameAccount, len(accounts))
	for i := range accounts {
		user.Accounts[i] = &accounts[i]
	}
	return user, nil
}
