package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/app/services"
	"github.com/dropsource/storefront/config"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/repository"
	"github.com/dropsource/storefront/utils"
)

// DepositFlow starts wallet top-ups through a hosted checkout
type DepositFlow interface {
	Create(ctx context.Context, identity Identity, method models.DepositMethod, req *dto.CreateDepositRequest, metadata *ClientMetadata) (*dto.CreateDepositResponse, error)
}

// DepositFlowImpl implements DepositFlow
type DepositFlowImpl struct {
	walletFlow  WalletFlow
	depositRepo repository.DepositRepository
	providers   map[models.DepositMethod]services.PaymentProvider
	paymentsCfg config.PaymentsConfig
	serverCfg   config.ServerConfig
}

func NewDepositFlow(
	walletFlow WalletFlow,
	depositRepo repository.DepositRepository,
	providers map[models.DepositMethod]services.PaymentProvider,
	paymentsCfg config.PaymentsConfig,
	serverCfg config.ServerConfig,
) DepositFlow {
	return &DepositFlowImpl{
		walletFlow:  walletFlow,
		depositRepo: depositRepo,
		providers:   providers,
		paymentsCfg: paymentsCfg,
		serverCfg:   serverCfg,
	}
}

// ResolveAmountCents prefers amount_cents, which must be integral, and falls back to a dollar amount
// rounded to the nearest cent. ok is false when neither resolves to a finite number.
func ResolveAmountCents(req *dto.CreateDepositRequest) (int64, bool) {
	if req == nil {
		return 0, false
	}
	if req.AmountCents != nil && req.AmountCents.String() != "" {
		if n, err := req.AmountCents.Int64(); err == nil {
			return n, true
		}
		f, err := req.AmountCents.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	}
	if req.Amount != nil && req.Amount.String() != "" {
		f, err := req.Amount.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return utils.DollarsToCents(f), true
	}
	return 0, false
}

func (f *DepositFlowImpl) minDepositCents() int64 {
	if f.paymentsCfg.MinDepositCents > utils.MinDepositCents {
		return f.paymentsCfg.MinDepositCents
	}
	return utils.MinDepositCents
}

func (f *DepositFlowImpl) Create(ctx context.Context, identity Identity, method models.DepositMethod, req *dto.CreateDepositRequest, metadata *ClientMetadata) (*dto.CreateDepositResponse, error) {
	provider, ok := f.providers[method]
	if !method.Valid() || !ok || provider == nil {
		return nil, ErrInvalidMethod
	}

	amountCents, ok := ResolveAmountCents(req)
	if !ok || amountCents < f.minDepositCents() {
		return nil, NewBusinessErrorf("AMOUNT_TOO_LOW", "Minimum deposit is $%s", ErrAmountTooLow, utils.CentsToDollarString(f.minDepositCents()))
	}

	if _, err := f.walletFlow.Ensure(ctx, identity); err != nil {
		return nil, err
	}

	deposit := &models.Deposit{
		UserID:      identity.UserID,
		Method:      method,
		AmountCents: amountCents,
		Status:      models.DepositStatusPending,
	}
	if err := f.depositRepo.Save(ctx, deposit); err != nil {
		return nil, NewBusinessError("DEPOSIT_CREATE_FAILED", "Failed to create deposit", err)
	}

	base := strings.TrimRight(f.serverCfg.PublicBaseURL, "/")
	result, err := provider.CreateCheckout(ctx, services.CheckoutInput{
		DepositID:   deposit.ID.String(),
		UserID:      identity.UserID,
		Email:       identity.EmailOrEmpty(),
		AmountCents: amountCents,
		RedirectURL: base + "/balance?ok=1",
		CancelURL:   base + "/balance?canceled=1",
	})
	if err != nil {
		msg := err.Error()
		failure := map[string]any{"error": msg}
		var perr *services.ProviderError
		if errors.As(err, &perr) {
			msg = perr.Message
			failure["error"] = msg
			if perr.Status > 0 {
				failure["status"] = perr.Status
			}
			if len(perr.Body) > 0 {
				failure["body"] = perr.Body
			}
		}
		payload, _ := json.Marshal(failure)
		if mErr := f.depositRepo.MarkFailed(ctx, deposit.ID, payload); mErr != nil {
			log.WithError(mErr).WithField("deposit_id", deposit.ID).Warn("failed to mark deposit failed")
		}
		log.WithFields(log.Fields{
			"deposit_id": deposit.ID,
			"method":     method,
			"user_id":    identity.UserID,
		}).WithError(err).Warn("checkout creation failed")
		return nil, NewBusinessError("PROVIDER_ERROR", msg, errors.Join(ErrProviderFailed, err))
	}

	// The cross reference planted in the checkout still lets the webhook find this deposit.
	if err := f.depositRepo.SetProviderRefs(ctx, deposit.ID, result.ProviderID, result.ProviderOrderID); err != nil {
		log.WithError(err).WithField("deposit_id", deposit.ID).Error("failed to store provider refs")
	}

	fields := log.Fields{
		"deposit_id":   deposit.ID,
		"method":       method,
		"amount_cents": amountCents,
		"provider_id":  result.ProviderID,
	}
	if metadata != nil {
		fields["ip"] = metadata.IPAddress
		fields["request_id"] = metadata.RequestID
	}
	log.WithFields(fields).Info("deposit checkout created")

	return &dto.CreateDepositResponse{
		URL:         result.URL,
		DepositID:   deposit.ID.String(),
		AmountCents: amountCents,
		Method:      string(method),
		ProviderID:  result.ProviderID,
		Env:         provider.Env(),
	}, nil
}
