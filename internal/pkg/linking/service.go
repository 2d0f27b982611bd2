package linking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aethex-labs/aethex/app/models"
	"github.com/aethex-labs/aethex/internal/pkg/cache"
	"gorm.io/gorm"
)

const (
	maxConsumeAttempts = 10
	attemptWindow      = 10 * time.Minute
	maxIssueCollisions = 3
)

// AttemptLimiter counts consume attempts per user inside a rolling window.
type AttemptLimiter interface {
	Hit(key string, window time.Duration) (int64, error)
}

// Service owns the verification-code lifecycle and the identity-link
// invariant: one Discord account, one local owner.
type Service struct {
	repo    Repository
	limiter AttemptLimiter
}

// NewService creates a linking service from an injected repository. A nil
// limiter disables attempt throttling (used in tests).
func NewService(repo Repository, limiter AttemptLimiter) *Service {
	return &Service{repo: repo, limiter: limiter}
}

// NewServiceFromDB creates a linking service from a GORM DB handle with the
// Redis-backed attempt limiter.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), redisLimiter{})
}

// IssueCode mints a fresh single-use code for a Discord identity. Any older
// unconsumed codes for the same identity are invalidated so at most one live
// code exists per Discord account.
func (s *Service) IssueCode(ctx context.Context, discordUserID, discordUsername string) (*models.VerificationCode, error) {
	_ = ctx
	id := strings.TrimSpace(discordUserID)
	if id == "" {
		return nil, errors.New("discord_user_id is required")
	}

	if err := s.repo.DeleteCodesByDiscordID(id); err != nil {
		return nil, fmt.Errorf("failed to invalidate previous codes: %w", err)
	}

	var lastErr error
	for i := 0; i < maxIssueCollisions; i++ {
		code, err := GenerateCode(CodeLength)
		if err != nil {
			return nil, err
		}
		vc := &models.VerificationCode{
			Code:            code,
			DiscordUserID:   id,
			DiscordUsername: strings.TrimSpace(discordUsername),
			ExpiresAt:       time.Now().Add(CodeTTL),
		}
		if err := s.repo.CreateCode(vc); err != nil {
			// Retry on the unlikely unique-code collision.
			lastErr = err
			continue
		}
		return vc, nil
	}
	return nil, fmt.Errorf("failed to issue verification code: %w", lastErr)
}

// ConsumeCode validates and consumes a code on behalf of a local account,
// establishing or confirming the identity link. See Repository.LinkWithCode
// for the atomicity contract.
func (s *Service) ConsumeCode(ctx context.Context, code string, userID uint) (*models.IdentityLink, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return nil, ErrInvalidOrExpiredCode
	}
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}

	if s.limiter != nil {
		key := fmt.Sprintf("linking:attempts:%d", userID)
		if count, err := s.limiter.Hit(key, attemptWindow); err == nil && count > maxConsumeAttempts {
			return nil, ErrTooManyAttempts
		}
	}

	return s.repo.LinkWithCode(ctx, trimmed, userID, time.Now())
}

// Status returns the caller's current link, or nil when unlinked.
func (s *Service) Status(ctx context.Context, userID uint) (*models.IdentityLink, error) {
	_ = ctx
	link, err := s.repo.GetLinkByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return link, nil
}

// Unlink removes the caller's link. Returns false when nothing was linked.
func (s *Service) Unlink(ctx context.Context, userID uint) (bool, error) {
	_ = ctx
	return s.repo.DeleteLinkByUserID(userID)
}

type redisLimiter struct{}

func (redisLimiter) Hit(key string, window time.Duration) (int64, error) {
	count, err := cache.Incr(key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := cache.Expire(key, window); err != nil {
			return count, err
		}
	}
	return count, nil
}
