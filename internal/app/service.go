/**
 * @description
 * This file implements the auth service: registration, login with the
 * account-lockout policy, recovery-code issuance and password reset. Every
 * mutation runs inside the store's Update so the load -> mutate -> save cycle
 * is serialized and a concurrent request cannot silently discard a write.
 */
package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/GustavoFMorales/api-login-mentoria/internal/domain"
	"github.com/GustavoFMorales/api-login-mentoria/internal/store"
	"github.com/GustavoFMorales/api-login-mentoria/internal/token"
)

// Notifier delivers recovery codes out-of-band. Delivery failures are
// surfaced distinctly so callers can tell "code generated but undelivered"
// apart from "request rejected".
type Notifier interface {
	SendRecoveryCode(ctx context.Context, to, code string) error
	SendTestMessage(ctx context.Context, to string) error
}

// EventPublisher publishes auth events to a message exchange. It matches the
// rabbitmq producer; a nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

const eventsExchange = "auth_events"

// Service orchestrates the account store, credential hasher, token service
// and notifier for the four auth operations.
type Service struct {
	store         *store.AccountStore
	tokens        *token.Service
	notifier      Notifier
	events        EventPublisher
	bcryptCost    int
	notifyTimeout time.Duration
}

// NewService wires the auth service. events may be nil.
func NewService(st *store.AccountStore, tokens *token.Service, notifier Notifier, events EventPublisher, bcryptCost int, notifyTimeout time.Duration) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if notifyTimeout == 0 {
		notifyTimeout = 10 * time.Second
	}
	return &Service{
		store:         st,
		tokens:        tokens,
		notifier:      notifier,
		events:        events,
		bcryptCost:    bcryptCost,
		notifyTimeout: notifyTimeout,
	}
}

// Register creates a new account with a hashed credential. The email must not
// already be registered; matching is case-sensitive exact equality.
func (s *Service) Register(ctx context.Context, name, email, secret string) error {
	if name == "" || email == "" || secret == "" {
		return domain.ErrValidation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing credential: %w", err)
	}

	var created domain.Account
	err = s.store.Update(ctx, func(accounts *[]domain.Account) (bool, error) {
		if indexByEmail(*accounts, email) >= 0 {
			return false, domain.ErrDuplicateAccount
		}
		created = domain.Account{
			ID:             uuid.NewString(),
			Name:           name,
			Email:          email,
			CredentialHash: string(hash),
			FailedAttempts: 0,
			Locked:         false,
		}
		*accounts = append(*accounts, created)
		return true, nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, "account.registered", domain.AccountRegisteredEvent{
		AccountID: created.ID,
		Email:     created.Email,
	})
	return nil
}

// Login verifies the secret against the stored credential and returns a
// session token. A locked account fails immediately regardless of the secret;
// the third consecutive failure locks the account permanently.
func (s *Service) Login(ctx context.Context, email, secret string) (string, error) {
	if email == "" || secret == "" {
		return "", domain.ErrValidation
	}

	var (
		signed    string
		lockedNow bool
		accountID string
	)
	err := s.store.Update(ctx, func(accounts *[]domain.Account) (bool, error) {
		i := indexByEmail(*accounts, email)
		if i < 0 {
			return false, domain.ErrAccountNotFound
		}
		acct := &(*accounts)[i]

		if acct.Locked {
			// Absorbing state: the failure counter is not touched.
			return false, domain.ErrAccountLocked
		}

		if bcrypt.CompareHashAndPassword([]byte(acct.CredentialHash), []byte(secret)) == nil {
			acct.FailedAttempts = 0
			t, err := s.tokens.Issue(acct.ID, acct.Name, acct.Email)
			if err != nil {
				return false, fmt.Errorf("signing session token: %w", err)
			}
			signed = t
			return true, nil
		}

		acct.FailedAttempts++
		if acct.FailedAttempts >= domain.LockThreshold {
			acct.Locked = true
			lockedNow = true
			accountID = acct.ID
			return true, domain.ErrAccountLocked
		}
		return true, domain.ErrInvalidCredential
	})

	if lockedNow {
		s.publish(ctx, "account.locked", domain.AccountLockedEvent{
			AccountID: accountID,
			Email:     email,
		})
	}
	if err != nil {
		return "", err
	}
	return signed, nil
}

// RequestRecovery generates a 6-digit recovery code, persists it on the
// account and then asks the notifier to deliver it. The code is saved before
// the send so a delivery failure never loses it; a repeated request
// overwrites the previous code.
func (s *Service) RequestRecovery(ctx context.Context, email string) error {
	if email == "" {
		return domain.ErrValidation
	}

	code, err := generateRecoveryCode()
	if err != nil {
		return fmt.Errorf("generating recovery code: %w", err)
	}

	err = s.store.Update(ctx, func(accounts *[]domain.Account) (bool, error) {
		i := indexByEmail(*accounts, email)
		if i < 0 {
			return false, domain.ErrAccountNotFound
		}
		(*accounts)[i].RecoveryCode = &code
		return true, nil
	})
	if err != nil {
		return err
	}

	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.SendRecoveryCode(nctx, email, code); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotify, err)
	}
	return nil
}

// ResetPassword consumes an outstanding recovery code and replaces the
// account's credential. The code is single-use: a successful reset clears it.
func (s *Service) ResetPassword(ctx context.Context, email, code, newSecret string) error {
	if email == "" || code == "" || newSecret == "" {
		return domain.ErrValidation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newSecret), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing credential: %w", err)
	}

	var accountID string
	err = s.store.Update(ctx, func(accounts *[]domain.Account) (bool, error) {
		i := indexByEmail(*accounts, email)
		if i < 0 {
			return false, domain.ErrAccountNotFound
		}
		acct := &(*accounts)[i]

		if acct.RecoveryCode == nil || *acct.RecoveryCode != code {
			return false, domain.ErrInvalidCode
		}

		acct.CredentialHash = string(hash)
		acct.RecoveryCode = nil
		accountID = acct.ID
		return true, nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, "password.reset", domain.PasswordResetEvent{
		AccountID: accountID,
		Email:     email,
	})
	return nil
}

// ListAccounts returns the redacted view of every registered account.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.AccountView, error) {
	accounts, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, a.View())
	}
	return views, nil
}

// SendTestEmail pushes a probe message through the notifier so operators can
// verify the mail configuration.
func (s *Service) SendTestEmail(ctx context.Context, email string) error {
	if email == "" {
		return domain.ErrValidation
	}

	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.SendTestMessage(nctx, email); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotify, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventsExchange, routingKey, body); err != nil {
		// Events are best-effort; the account mutation already committed.
		log.Printf("Failed to publish %s event: %v", routingKey, err)
	}
}

func indexByEmail(accounts []domain.Account, email string) int {
	for i, a := range accounts {
		if a.Email == email {
			return i
		}
	}
	return -1
}

// generateRecoveryCode draws a 6-digit code uniformly from [100000, 999999].
func generateRecoveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
