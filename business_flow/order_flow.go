package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/app/services"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/repository"
	"github.com/dropsource/storefront/utils"
)

// OrderFlow places and tracks panel orders paid from the wallet
type OrderFlow interface {
	Create(ctx context.Context, identity Identity, req *dto.CreateOrderRequest, metadata *ClientMetadata) (*dto.CreateOrderResponse, error)
	Status(ctx context.Context, identity Identity, orderID string) (*dto.OrderActionResponse, error)
	Cancel(ctx context.Context, identity Identity, orderID string) (*dto.OrderActionResponse, error)
	Refill(ctx context.Context, identity Identity, orderID string) (*dto.OrderActionResponse, error)
	List(ctx context.Context, identity Identity, limit, offset int) (*dto.ListOrdersResponse, error)
}

// OrderFlowImpl implements OrderFlow
type OrderFlowImpl struct {
	walletFlow  WalletFlow
	catalogFlow CatalogFlow
	orderRepo   repository.OrderRepository
	walletRepo  repository.WalletRepository
	txManager   repository.TxManager
	panel       services.PanelClient
}

func NewOrderFlow(
	walletFlow WalletFlow,
	catalogFlow CatalogFlow,
	orderRepo repository.OrderRepository,
	walletRepo repository.WalletRepository,
	txManager repository.TxManager,
	panel services.PanelClient,
) OrderFlow {
	return &OrderFlowImpl{
		walletFlow:  walletFlow,
		catalogFlow: catalogFlow,
		orderRepo:   orderRepo,
		walletRepo:  walletRepo,
		txManager:   txManager,
		panel:       panel,
	}
}

// OrderCostCents prices qty units at pricePer1K dollars per thousand, never below one cent
func OrderCostCents(pricePer1K float64, qty int64) int64 {
	cents := int64(math.Round(pricePer1K * float64(qty) / 10))
	if cents < 1 {
		return 1
	}
	return cents
}

// Create commits the debit together with a pending order, then forwards the order to the panel.
// A panel rejection refunds the debit and cancels the order in a second transaction.
// The wallet row is never locked across the panel call.
func (f *OrderFlowImpl) Create(ctx context.Context, identity Identity, req *dto.CreateOrderRequest, metadata *ClientMetadata) (*dto.CreateOrderResponse, error) {
	if req == nil || strings.TrimSpace(req.Service.String()) == "" || strings.TrimSpace(req.Link) == "" || req.Quantity <= 0 {
		return nil, ErrOrderFieldsRequired
	}

	if _, err := f.walletFlow.Ensure(ctx, identity); err != nil {
		return nil, err
	}

	svc, err := f.catalogFlow.Get(ctx, req.Service.String())
	if err != nil {
		return nil, err
	}
	if !svc.AllowsQuantity(req.Quantity) {
		return nil, NewBusinessErrorf("INVALID_QUANTITY", "Quantity must be between %d and %d", ErrInvalidQuantity, svc.Min, svc.Max)
	}
	cost := OrderCostCents(svc.PricePer1K, req.Quantity)

	fields := log.Fields{
		"user_id":    identity.UserID,
		"service_id": svc.ID,
		"cost_cents": cost,
	}
	if metadata != nil {
		fields["request_id"] = metadata.RequestID
	}

	order, balance, err := f.reserve(ctx, identity.UserID, svc, req, cost)
	if err != nil {
		ordersTotal.WithLabelValues(orderResultLabel(err)).Inc()
		if IsInsufficientFunds(err) {
			return nil, NewBusinessError("INSUFFICIENT_FUNDS", "Insufficient balance", err)
		}
		return nil, NewBusinessError("ORDER_CREATE_FAILED", "Failed to place order", err)
	}
	fields["order_id"] = order.ID

	res, err := f.panel.AddOrder(ctx, services.PanelOrderInput{
		Service:  svc.ID,
		Link:     order.Link,
		Quantity: req.Quantity,
		Runs:     req.Runs,
		Interval: req.Interval,
		Comments: req.Comments,
	})
	if err != nil {
		ordersTotal.WithLabelValues("panel_error").Inc()
		f.release(ctx, order, err, fields)
		return nil, NewBusinessError("PANEL_ERROR", panelMessage(err), errors.Join(ErrPanelFailed, err))
	}
	ordersTotal.WithLabelValues("placed").Inc()
	fields["provider_order_id"] = res.OrderID

	order.Status = models.OrderStatusPlaced
	order.ProviderOrderID = utils.ToPtr(res.OrderID)
	order.UpstreamResponse = res.Raw
	if err := f.orderRepo.Update(ctx, order); err != nil {
		// the user paid and the panel accepted; only the local record is stale
		log.WithError(err).WithFields(fields).Error("order placed upstream but not recorded, reconcile provider_order_id")
	} else {
		log.WithFields(fields).Info("order placed")
	}

	return &dto.CreateOrderResponse{
		OrderID:         order.ID.String(),
		ProviderOrderID: res.OrderID,
		CostCents:       cost,
		BalanceCents:    balance,
		Status:          string(models.OrderStatusPlaced),
	}, nil
}

// reserve debits the wallet and records a pending order in one transaction
func (f *OrderFlowImpl) reserve(ctx context.Context, userID string, svc *models.Service, req *dto.CreateOrderRequest, cost int64) (*models.Order, int64, error) {
	var order *models.Order
	var balance int64
	err := f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		newBalance, ok, err := f.walletRepo.Debit(txCtx, userID, cost)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientFunds
		}
		balance = newBalance

		order = &models.Order{
			UserID:      userID,
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			Link:        strings.TrimSpace(req.Link),
			Quantity:    req.Quantity,
			Runs:        req.Runs,
			Interval:    req.Interval,
			CostCents:   cost,
			Status:      models.OrderStatusPending,
		}
		return f.orderRepo.Save(txCtx, order)
	})
	if err != nil {
		return nil, 0, err
	}
	return order, balance, nil
}

// release refunds a reserved order the panel rejected and marks it canceled
func (f *OrderFlowImpl) release(ctx context.Context, order *models.Order, cause error, fields log.Fields) {
	reason, _ := json.Marshal(map[string]string{"error": panelMessage(cause)})
	err := f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := f.walletRepo.Credit(txCtx, order.UserID, order.CostCents); err != nil {
			return err
		}
		order.Status = models.OrderStatusCanceled
		order.UpstreamResponse = reason
		return f.orderRepo.Update(txCtx, order)
	})
	if err != nil {
		log.WithError(err).WithFields(fields).Error("panel rejected order and refund failed, pending order needs a manual refund")
		return
	}
	log.WithError(cause).WithFields(fields).Warn("panel rejected order, debit refunded")
}

func orderResultLabel(err error) string {
	switch {
	case IsInsufficientFunds(err):
		return "insufficient_funds"
	case IsPanelFailed(err):
		return "panel_error"
	default:
		return "error"
	}
}

// ownedOrder loads an order placed upstream by the caller
func (f *OrderFlowImpl) ownedOrder(ctx context.Context, identity Identity, orderID string) (*models.Order, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return nil, ErrMissingIdentity
	}
	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return nil, ErrOrderNotFound
	}
	order, err := f.orderRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("ORDER_LOOKUP_FAILED", "Failed to load order", err)
	}
	if order == nil || order.UserID != identity.UserID {
		return nil, ErrOrderNotFound
	}
	if order.ProviderOrderID == nil || *order.ProviderOrderID == "" {
		return nil, ErrOrderNotPlaced
	}
	return order, nil
}

type panelOrderAction func(ctx context.Context, providerOrderID string) (json.RawMessage, error)

func (f *OrderFlowImpl) runAction(ctx context.Context, identity Identity, orderID string, action panelOrderAction, next models.OrderStatus) (*dto.OrderActionResponse, error) {
	order, err := f.ownedOrder(ctx, identity, orderID)
	if err != nil {
		return nil, err
	}

	raw, err := action(ctx, *order.ProviderOrderID)
	if err != nil {
		return nil, NewBusinessError("PANEL_ERROR", panelMessage(err), errors.Join(ErrPanelFailed, err))
	}

	if doc, err := utils.DecodeJSON(raw); err == nil {
		if status, ok := utils.LookupString(doc, "status"); ok {
			order.UpstreamStatus = &status
		}
	}
	order.UpstreamResponse = raw
	if next != "" {
		order.Status = next
	}
	if err := f.orderRepo.Update(ctx, order); err != nil {
		log.WithError(err).WithField("order_id", order.ID).Warn("failed to store upstream order state")
	}

	return &dto.OrderActionResponse{
		OrderID:         order.ID.String(),
		ProviderOrderID: *order.ProviderOrderID,
		Status:          string(order.Status),
		Upstream:        raw,
	}, nil
}

func (f *OrderFlowImpl) Status(ctx context.Context, identity Identity, orderID string) (*dto.OrderActionResponse, error) {
	if f.panel == nil {
		return nil, ErrCatalogNotAvailable
	}
	return f.runAction(ctx, identity, orderID, f.panel.OrderStatus, "")
}

func (f *OrderFlowImpl) Cancel(ctx context.Context, identity Identity, orderID string) (*dto.OrderActionResponse, error) {
	if f.panel == nil {
		return nil, ErrCatalogNotAvailable
	}
	return f.runAction(ctx, identity, orderID, f.panel.Cancel, models.OrderStatusCanceled)
}

func (f *OrderFlowImpl) Refill(ctx context.Context, identity Identity, orderID string) (*dto.OrderActionResponse, error) {
	if f.panel == nil {
		return nil, ErrCatalogNotAvailable
	}
	return f.runAction(ctx, identity, orderID, f.panel.Refill, models.OrderStatusRefilling)
}

func (f *OrderFlowImpl) List(ctx context.Context, identity Identity, limit, offset int) (*dto.ListOrdersResponse, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return nil, ErrMissingIdentity
	}
	limit, offset = clampPage(limit, offset, 20, 100)
	userID := identity.UserID
	orders, err := f.orderRepo.ByFilter(ctx, models.OrderFilter{UserID: &userID}, "created_at DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("ORDER_LIST_FAILED", "Failed to list orders", err)
	}
	out := make([]dto.OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToOrderDTO(*o))
	}
	return &dto.ListOrdersResponse{Orders: out, Limit: limit, Offset: offset}, nil
}
