package app

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/GustavoFMorales/api-login-mentoria/internal/domain"
	"github.com/GustavoFMorales/api-login-mentoria/internal/store"
	"github.com/GustavoFMorales/api-login-mentoria/internal/token"
)

type fakeNotifier struct {
	sentTo    []string
	sentCodes []string
	fail      error
}

func (f *fakeNotifier) SendRecoveryCode(ctx context.Context, to, code string) error {
	if f.fail != nil {
		return f.fail
	}
	f.sentTo = append(f.sentTo, to)
	f.sentCodes = append(f.sentCodes, code)
	return nil
}

func (f *fakeNotifier) SendTestMessage(ctx context.Context, to string) error {
	if f.fail != nil {
		return f.fail
	}
	f.sentTo = append(f.sentTo, to)
	return nil
}

func newTestService(t *testing.T) (*Service, *store.AccountStore, *fakeNotifier) {
	t.Helper()
	st := store.NewAccountStore(filepath.Join(t.TempDir(), "users.json"))
	tokens := token.NewService("test-secret", time.Hour)
	notifier := &fakeNotifier{}
	svc := NewService(st, tokens, notifier, nil, bcrypt.MinCost, time.Second)
	return svc, st, notifier
}

func mustRegister(t *testing.T, svc *Service, name, email, secret string) {
	t.Helper()
	if err := svc.Register(context.Background(), name, email, secret); err != nil {
		t.Fatalf("Register(%s) returned error: %v", email, err)
	}
}

func findAccount(t *testing.T, st *store.AccountStore, email string) domain.Account {
	t.Helper()
	accounts, err := st.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	for _, a := range accounts {
		if a.Email == email {
			return a
		}
	}
	t.Fatalf("no account for %s", email)
	return domain.Account{}
}

func TestRegister_RequiresAllFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name, accName, email, secret string
	}{
		{name: "missing name", email: "ana@x.com", secret: "secret1"},
		{name: "missing email", accName: "Ana", secret: "secret1"},
		{name: "missing secret", accName: "Ana", email: "ana@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Register(context.Background(), tt.accName, tt.email, tt.secret)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRegister_DuplicateEmailAlwaysRejected(t *testing.T) {
	svc, st, _ := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	// Different name and secret make no difference.
	err := svc.Register(context.Background(), "Other", "ana@x.com", "another-secret")
	if !errors.Is(err, domain.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}

	acct := findAccount(t, st, "ana@x.com")
	if acct.Name != "Ana" {
		t.Fatalf("existing account was overwritten: name %q", acct.Name)
	}
}

func TestRegister_NewAccountStartsActive(t *testing.T) {
	svc, st, _ := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	acct := findAccount(t, st, "ana@x.com")
	if acct.ID == "" {
		t.Fatal("expected a generated account id")
	}
	if acct.FailedAttempts != 0 || acct.Locked || acct.RecoveryCode != nil {
		t.Fatalf("expected fresh account state, got %+v", acct)
	}
	if acct.CredentialHash == "secret1" || acct.CredentialHash == "" {
		t.Fatal("secret must be stored hashed")
	}
}

func TestLogin_SuccessReturnsToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	tok, err := svc.Login(context.Background(), "ana@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if tok == "" {
		t.Fatal("expected a session token")
	}

	claims, err := token.NewService("test-secret", time.Hour).Verify(tok)
	if err != nil {
		t.Fatalf("token did not verify: %v", err)
	}
	if claims.Email != "ana@x.com" || claims.Name != "Ana" || claims.Subject == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLogin_UnknownEmailIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	_, err := svc.Login(context.Background(), "nobody@x.com", "secret1")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestLogin_ThirdFailureLocksPermanently(t *testing.T) {
	svc, st, _ := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	for i := 1; i <= 2; i++ {
		_, err := svc.Login(context.Background(), "ana@x.com", "wrong")
		if !errors.Is(err, domain.ErrInvalidCredential) {
			t.Fatalf("attempt %d: expected ErrInvalidCredential, got %v", i, err)
		}
		if got := findAccount(t, st, "ana@x.com").FailedAttempts; got != i {
			t.Fatalf("attempt %d: expected counter %d, got %d", i, i, got)
		}
	}

	_, err := svc.Login(context.Background(), "ana@x.com", "wrong")
	if !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("third failure: expected ErrAccountLocked, got %v", err)
	}
	if !findAccount(t, st, "ana@x.com").Locked {
		t.Fatal("account should be locked after three failures")
	}

	// Even the correct secret is rejected once locked, and the counter is
	// left alone.
	_, err = svc.Login(context.Background(), "ana@x.com", "secret1")
	if !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("locked login with correct secret: expected ErrAccountLocked, got %v", err)
	}
	if got := findAccount(t, st, "ana@x.com").FailedAttempts; got != domain.LockThreshold {
		t.Fatalf("locked login must not touch the counter, got %d", got)
	}
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	svc, st, _ := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	// Counter sequence 1, 2, 0, 1, 2: two failures, one success, two more
	// failures must not lock the account.
	steps := []struct {
		secret string
		want   int
	}{
		{"wrong", 1},
		{"wrong", 2},
		{"secret1", 0},
		{"wrong", 1},
		{"wrong", 2},
	}

	for i, step := range steps {
		_, _ = svc.Login(context.Background(), "ana@x.com", step.secret)
		acct := findAccount(t, st, "ana@x.com")
		if acct.FailedAttempts != step.want {
			t.Fatalf("step %d: expected counter %d, got %d", i, step.want, acct.FailedAttempts)
		}
		if acct.Locked {
			t.Fatalf("step %d: account must not be locked", i)
		}
	}
}

func TestRequestRecovery_GeneratesAndPersistsSixDigitCode(t *testing.T) {
	svc, st, notifier := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	if err := svc.RequestRecovery(context.Background(), "ana@x.com"); err != nil {
		t.Fatalf("RequestRecovery returned error: %v", err)
	}

	acct := findAccount(t, st, "ana@x.com")
	if acct.RecoveryCode == nil {
		t.Fatal("expected a persisted recovery code")
	}
	n, err := strconv.Atoi(*acct.RecoveryCode)
	if err != nil || n < 100000 || n > 999999 {
		t.Fatalf("expected a 6-digit code, got %q", *acct.RecoveryCode)
	}

	if len(notifier.sentCodes) != 1 || notifier.sentCodes[0] != *acct.RecoveryCode {
		t.Fatalf("notifier got %v, persisted code %q", notifier.sentCodes, *acct.RecoveryCode)
	}
	if notifier.sentTo[0] != "ana@x.com" {
		t.Fatalf("notifier sent to %q", notifier.sentTo[0])
	}
}

func TestRequestRecovery_UnknownEmail(t *testing.T) {
	svc, _, notifier := newTestService(t)

	err := svc.RequestRecovery(context.Background(), "nobody@x.com")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if len(notifier.sentCodes) != 0 {
		t.Fatal("notifier must not be invoked for unknown accounts")
	}
}

func TestRequestRecovery_NotifyFailureKeepsCode(t *testing.T) {
	svc, st, notifier := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")
	notifier.fail = errors.New("smtp unreachable")

	err := svc.RequestRecovery(context.Background(), "ana@x.com")
	if !errors.Is(err, domain.ErrNotify) {
		t.Fatalf("expected ErrNotify, got %v", err)
	}

	// The code was persisted before the send, so an out-of-band delivery or
	// retried request can still use it.
	acct := findAccount(t, st, "ana@x.com")
	if acct.RecoveryCode == nil {
		t.Fatal("recovery code must survive a delivery failure")
	}

	if err := svc.ResetPassword(context.Background(), "ana@x.com", *acct.RecoveryCode, "newsecret"); err != nil {
		t.Fatalf("reset with undelivered code failed: %v", err)
	}
}

func TestRequestRecovery_FreshRequestOverwritesCode(t *testing.T) {
	svc, _, notifier := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	if err := svc.RequestRecovery(context.Background(), "ana@x.com"); err != nil {
		t.Fatalf("first RequestRecovery: %v", err)
	}
	if err := svc.RequestRecovery(context.Background(), "ana@x.com"); err != nil {
		t.Fatalf("second RequestRecovery: %v", err)
	}

	first, second := notifier.sentCodes[0], notifier.sentCodes[1]
	if first == second {
		t.Skip("codes collided, overwrite is unobservable")
	}

	err := svc.ResetPassword(context.Background(), "ana@x.com", first, "newsecret")
	if !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("superseded code should be rejected, got %v", err)
	}

	if err := svc.ResetPassword(context.Background(), "ana@x.com", second, "newsecret"); err != nil {
		t.Fatalf("latest code should succeed, got %v", err)
	}
}

func TestResetPassword_ConsumesCodeExactlyOnce(t *testing.T) {
	svc, st, notifier := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	if err := svc.RequestRecovery(context.Background(), "ana@x.com"); err != nil {
		t.Fatalf("RequestRecovery: %v", err)
	}
	code := notifier.sentCodes[0]

	if err := svc.ResetPassword(context.Background(), "ana@x.com", code, "newsecret"); err != nil {
		t.Fatalf("first reset failed: %v", err)
	}
	if findAccount(t, st, "ana@x.com").RecoveryCode != nil {
		t.Fatal("recovery code must be cleared after a successful reset")
	}

	err := svc.ResetPassword(context.Background(), "ana@x.com", code, "again")
	if !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("second reset with same code: expected ErrInvalidCode, got %v", err)
	}

	// The new credential works, the old one does not.
	if _, err := svc.Login(context.Background(), "ana@x.com", "newsecret"); err != nil {
		t.Fatalf("login with new secret failed: %v", err)
	}
}

func TestResetPassword_RejectsWrongOrAbsentCode(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	// No outstanding code at all.
	err := svc.ResetPassword(context.Background(), "ana@x.com", "123456", "newsecret")
	if !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode without outstanding code, got %v", err)
	}

	err = svc.ResetPassword(context.Background(), "nobody@x.com", "123456", "newsecret")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestResetPassword_DoesNotUnlockAccount(t *testing.T) {
	svc, st, notifier := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")

	for i := 0; i < 3; i++ {
		_, _ = svc.Login(context.Background(), "ana@x.com", "wrong")
	}
	if !findAccount(t, st, "ana@x.com").Locked {
		t.Fatal("account should be locked")
	}

	if err := svc.RequestRecovery(context.Background(), "ana@x.com"); err != nil {
		t.Fatalf("RequestRecovery on locked account: %v", err)
	}
	if err := svc.ResetPassword(context.Background(), "ana@x.com", notifier.sentCodes[0], "newsecret"); err != nil {
		t.Fatalf("ResetPassword on locked account: %v", err)
	}

	// There is no unlock path: the credential changed but the lock stays.
	_, err := svc.Login(context.Background(), "ana@x.com", "newsecret")
	if !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked after reset, got %v", err)
	}
}

func TestListAccounts_RedactsCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustRegister(t, svc, "Ana", "ana@x.com", "secret1")
	mustRegister(t, svc, "Bob", "bob@x.com", "secret2")

	views, err := svc.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(views))
	}
	for _, v := range views {
		if v.ID == "" || v.Email == "" {
			t.Fatalf("incomplete view: %+v", v)
		}
	}
}

func TestSendTestEmail(t *testing.T) {
	svc, _, notifier := newTestService(t)

	if err := svc.SendTestEmail(context.Background(), "ops@x.com"); err != nil {
		t.Fatalf("SendTestEmail returned error: %v", err)
	}
	if len(notifier.sentTo) != 1 || notifier.sentTo[0] != "ops@x.com" {
		t.Fatalf("unexpected recipients: %v", notifier.sentTo)
	}

	if err := svc.SendTestEmail(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty email, got %v", err)
	}

	notifier.fail = errors.New("smtp down")
	if err := svc.SendTestEmail(context.Background(), "ops@x.com"); !errors.Is(err, domain.ErrNotify) {
		t.Fatalf("expected ErrNotify, got %v", err)
	}
}
