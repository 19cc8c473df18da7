package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventsignup/internal/domain"
	"eventsignup/internal/validation"
)

// AccountConfig tunes the account service.
type AccountConfig struct {
	TokenExpiry time.Duration
	// AdminIdentityKeys are identity keys that receive administrator rights on sign up.
	AdminIdentityKeys []string
	Timeout           time.Duration
	Now               func() time.Time
}

type accountService struct {
	accountRepo    domain.AccountRepository
	tokenIssuer    domain.TokenIssuer
	tokenExpiry    time.Duration
	adminKeys      map[string]struct{}
	contextTimeout time.Duration
	now            func() time.Time
}

// NewAccountService creates an AccountService with the given repository and token issuer.
func NewAccountService(accountRepo domain.AccountRepository, tokenIssuer domain.TokenIssuer, cfg AccountConfig) domain.AccountService {
	admins := make(map[string]struct{}, len(cfg.AdminIdentityKeys))
	for _, k := range cfg.AdminIdentityKeys {
		if k = strings.TrimSpace(k); k != "" {
			admins[k] = struct{}{}
		}
	}
	expiry := cfg.TokenExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &accountService{
		accountRepo:    accountRepo,
		tokenIssuer:    tokenIssuer,
		tokenExpiry:    expiry,
		adminKeys:      admins,
		contextTimeout: timeoutOrDefault(cfg.Timeout),
		now:            clockOrDefault(cfg.Now),
	}
}

func (s *accountService) SignUp(ctx context.Context, in domain.SignUpInput) (*domain.Account, error) {
	in.IdentityKey = strings.TrimSpace(in.IdentityKey)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validation.Struct(ctx, in); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, isAdmin := s.adminKeys[in.IdentityKey]
	account := domain.NewAccount(in.IdentityKey, in.DisplayName, in.Phone, in.BirthDate, in.Gender, isAdmin, s.now())
	account.AvatarURL = in.AvatarURL
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateAccount) {
			return nil, domain.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *accountService) ExchangeIdentity(ctx context.Context, identityKey string) (string, *domain.Account, error) {
	identityKey = strings.TrimSpace(identityKey)
	if identityKey == "" {
		return "", nil, domain.NewValidationError("identity_key", "is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	account, err := s.accountRepo.GetByIdentityKey(ctx, identityKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrNotFound
		}
		return "", nil, fmt.Errorf("get account by identity: %w", err)
	}
	token, err := s.tokenIssuer.Issue(account.ID, account.IsAdmin, s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, account, nil
}

// ResolveIdentity maps an identity key to its account id. Unknown keys are ErrUnauthorized.
func (s *accountService) ResolveIdentity(ctx context.Context, identityKey string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	account, err := s.accountRepo.GetByIdentityKey(ctx, strings.TrimSpace(identityKey))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", fmt.Errorf("resolve identity: %w", err)
	}
	return account.ID, nil
}

func (s *accountService) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, accountID string, upd domain.AccountProfileUpdate) (*domain.Account, error) {
	if upd.DisplayName != nil {
		v := strings.TrimSpace(*upd.DisplayName)
		upd.DisplayName = &v
	}
	if upd.Phone != nil {
		v := strings.TrimSpace(*upd.Phone)
		upd.Phone = &v
	}
	if err := validation.Struct(ctx, upd); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	if upd.DisplayName != nil {
		account.DisplayName = *upd.DisplayName
	}
	if upd.Phone != nil {
		account.Phone = *upd.Phone
	}
	if upd.BirthDate != nil {
		account.BirthDate = *upd.BirthDate
	}
	if upd.Gender != nil {
		account.Gender = *upd.Gender
	}
	if upd.AvatarURL != nil {
		account.AvatarURL = upd.AvatarURL
	}
	if err := s.accountRepo.Update(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateAccount) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

func (s *accountService) requireAdmin(ctx context.Context, accountID string) error {
	acting, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return fmt.Errorf("get acting account: %w", err)
	}
	if !acting.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func (s *accountService) List(ctx context.Context, actingAccountID string, p domain.PaginationParams) (domain.Page[*domain.Account], error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.requireAdmin(ctx, actingAccountID); err != nil {
		return domain.Page[*domain.Account]{}, err
	}
	p = p.Normalize()
	accounts, total, err := s.accountRepo.List(ctx, p)
	if err != nil {
		return domain.Page[*domain.Account]{}, fmt.Errorf("list accounts: %w", err)
	}
	return domain.NewPage(accounts, p, total), nil
}

func (s *accountService) Delete(ctx context.Context, actingAccountID, accountID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.requireAdmin(ctx, actingAccountID); err != nil {
		return err
	}
	if err := s.accountRepo.Delete(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
