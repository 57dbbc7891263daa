package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/pkg/ctxutil"
)

// GetProfile returns the authenticated user's profile.
// Returns ErrUnauthorized if no userID is found in context.
func (s *Service) GetProfile(ctx context.Context) (*domain.User, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user.GetProfile: %w", err)
	}

	return user, nil
}

// UpdateProfile changes the name and timezone of the authenticated user.
func (s *Service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.Update(ctx, userID, input.Name, input.Timezone)
	if err != nil {
		return nil, fmt.Errorf("user.UpdateProfile: %w", err)
	}

	attrs := []any{slog.String("user_id", userID.String())}
	if input.Timezone != nil {
		attrs = append(attrs, slog.String("timezone", *input.Timezone))
	}
	s.log.InfoContext(ctx, "profile updated", attrs...)

	return user, nil
}
