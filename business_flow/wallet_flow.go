package businessflow

import (
	"context"
	"errors"
	"strings"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/repository"
	"github.com/dropsource/storefront/utils"
)

// WalletFlow bootstraps the user and wallet rows on demand
type WalletFlow interface {
	Ensure(ctx context.Context, identity Identity) (*models.Wallet, error)
	GetWallet(ctx context.Context, identity Identity) (*dto.WalletResponse, error)
}

// WalletFlowImpl implements WalletFlow
type WalletFlowImpl struct {
	userRepo   repository.UserRepository
	walletRepo repository.WalletRepository
}

func NewWalletFlow(userRepo repository.UserRepository, walletRepo repository.WalletRepository) WalletFlow {
	return &WalletFlowImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
	}
}

// Ensure is safe to call on every request; a concurrent wallet insert is not an error
func (f *WalletFlowImpl) Ensure(ctx context.Context, identity Identity) (*models.Wallet, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return nil, ErrMissingIdentity
	}

	user := &models.User{ID: identity.UserID, Email: identity.Email}
	if err := f.userRepo.Upsert(ctx, user); err != nil {
		return nil, NewBusinessError("BOOTSTRAP_FAILED", "Failed to upsert user", errors.Join(ErrBootstrapFailed, err))
	}

	wallet, err := f.walletRepo.ByUserID(ctx, identity.UserID)
	if err != nil {
		return nil, NewBusinessError("BOOTSTRAP_FAILED", "Failed to load wallet", errors.Join(ErrBootstrapFailed, err))
	}
	if wallet != nil {
		return wallet, nil
	}

	if err := f.walletRepo.CreateIfAbsent(ctx, identity.UserID); err != nil && !repository.IsDuplicateKey(err) {
		return nil, NewBusinessError("BOOTSTRAP_FAILED", "Failed to create wallet", errors.Join(ErrBootstrapFailed, err))
	}

	wallet, err = f.walletRepo.ByUserID(ctx, identity.UserID)
	if err != nil {
		return nil, NewBusinessError("BOOTSTRAP_FAILED", "Failed to load wallet", errors.Join(ErrBootstrapFailed, err))
	}
	if wallet == nil {
		return nil, NewBusinessError("BOOTSTRAP_FAILED", "Wallet missing after create", ErrBootstrapFailed)
	}
	return wallet, nil
}

func (f *WalletFlowImpl) GetWallet(ctx context.Context, identity Identity) (*dto.WalletResponse, error) {
	wallet, err := f.Ensure(ctx, identity)
	if err != nil {
		return nil, err
	}

	currency := strings.ToLower(strings.TrimSpace(wallet.Currency))
	if currency == "" {
		currency = utils.USDCurrency
	}
	balance := wallet.BalanceCents
	if balance < 0 {
		balance = 0
	}
	return &dto.WalletResponse{BalanceCents: balance, Currency: currency}, nil
}
