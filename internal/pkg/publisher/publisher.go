package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/SocialPulseApp/SocialPulse/app/repository"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/ratelimit"
	"github.com/SocialPulseApp/SocialPulse/internal/pkg/secrets"
)

// RateLimitScope is the limiter scope used for outbound platform calls.
const RateLimitScope = "platform"

// Sender performs the actual platform API call. The HTTP client lives
// behind this interface; delivery details are owned by the platform SDK
// integration, not this package.
type Sender interface {
	Send(ctx context.Context, platform, accountID, accessToken, action string, payload map[string]interface{}) error
}

// Publisher performs outbound platform actions for an account: it resolves
// the account, decrypts its stored token and checks the shared rate limiter
// before every call.
type Publisher struct {
	accounts repository.SocialAccountRepository
	box      *secrets.Box
	limiter  *ratelimit.Limiter
	sender   Sender
}

// New creates an outbound publisher
func New(accounts repository.SocialAccountRepository, box *secrets.Box, limiter *ratelimit.Limiter, sender Sender) *Publisher {
	return &Publisher{
		accounts: accounts,
		box:      box,
		limiter:  limiter,
		sender:   sender,
	}
}

// Publish runs one outbound action for the account. A full rate window
// surfaces as *ratelimit.LimitExceededError carrying the reset delay; a
// missing or undecryptable token is a configuration problem, not retryable.
func (p *Publisher) Publish(ctx context.Context, accountID uint, action string, payload map[string]interface{}) error {
	account, err := p.accounts.GetByID(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("unknown account %d", accountID)
		}
		return fmt.Errorf("account lookup failed: %w", err)
	}

	if _, err := p.limiter.AllowOrErr(ctx, RateLimitScope, account.PlatformAccountID, action); err != nil {
		var limited *ratelimit.LimitExceededError
		if errors.As(err, &limited) {
			log.Warnf("[Publisher] Account %d throttled for %s, resets in %s", accountID, action, limited.ResetIn)
		}
		return err
	}

	token, err := p.box.Decrypt(account.AccessTokenEnc)
	if err != nil {
		return fmt.Errorf("account %d: %w", accountID, err)
	}

	if err := p.sender.Send(ctx, account.Platform, account.PlatformAccountID, token, action, payload); err != nil {
		return fmt.Errorf("outbound %s to %s failed: %w", action, account.Platform, err)
	}
	return nil
}
