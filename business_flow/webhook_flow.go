package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/dropsource/storefront/app/services"
	"github.com/dropsource/storefront/config"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/repository"
	"github.com/dropsource/storefront/utils"
)

const maxLoggedPayload = 64 * 1024

// WebhookDelivery is one inbound provider callback, body untouched
type WebhookDelivery struct {
	Source      models.DepositMethod
	RawBody     []byte
	Signature   string
	DebugBypass bool
	ReceivedAt  time.Time
}

// WebhookOutcome tells the handler how to answer the provider
type WebhookOutcome struct {
	HTTPStatus int
	Event      string
	DepositID  *uuid.UUID
	Err        error
	// Debug carries the error text back only when debug errors are enabled outside production
	Debug string
}

// WebhookFlow reconciles provider callbacks against deposits
type WebhookFlow interface {
	Handle(ctx context.Context, delivery WebhookDelivery) *WebhookOutcome
}

// WebhookFlowImpl implements WebhookFlow
type WebhookFlowImpl struct {
	depositRepo   repository.DepositRepository
	walletRepo    repository.WalletRepository
	logRepo       repository.WebhookLogRepository
	txManager     repository.TxManager
	archive       services.PayloadArchive
	notifier      services.NotificationService
	coinbaseCfg   config.CoinbaseConfig
	squareCfg     config.SquareConfig
	paymentsCfg   config.PaymentsConfig
	deploymentCfg config.DeploymentConfig
}

func NewWebhookFlow(
	depositRepo repository.DepositRepository,
	walletRepo repository.WalletRepository,
	logRepo repository.WebhookLogRepository,
	txManager repository.TxManager,
	archive services.PayloadArchive,
	notifier services.NotificationService,
	coinbaseCfg config.CoinbaseConfig,
	squareCfg config.SquareConfig,
	paymentsCfg config.PaymentsConfig,
	deploymentCfg config.DeploymentConfig,
) WebhookFlow {
	if archive == nil {
		archive = services.NoopPayloadArchive{}
	}
	if notifier == nil {
		notifier = services.NewLogNotificationService()
	}
	return &WebhookFlowImpl{
		depositRepo:   depositRepo,
		walletRepo:    walletRepo,
		logRepo:       logRepo,
		txManager:     txManager,
		archive:       archive,
		notifier:      notifier,
		coinbaseCfg:   coinbaseCfg,
		squareCfg:     squareCfg,
		paymentsCfg:   paymentsCfg,
		deploymentCfg: deploymentCfg,
	}
}

// CoinbaseSignature is the hex HMAC-SHA256 of the raw body
func CoinbaseSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SquareSignature is the base64 HMAC-SHA256 of notification URL followed by the raw body
func SquareSignature(key, notificationURL string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func VerifyCoinbaseSignature(secret string, body []byte, signature string) bool {
	expected := CoinbaseSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

func VerifySquareSignature(key, notificationURL string, body []byte, signature string) bool {
	expected := SquareSignature(key, notificationURL, body)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (f *WebhookFlowImpl) debugAllowed() bool {
	return !f.deploymentCfg.IsProduction()
}

func (f *WebhookFlowImpl) successStatus() models.DepositStatus {
	s := models.DepositStatus(strings.ToLower(strings.TrimSpace(f.paymentsCfg.DepositSuccessStatus)))
	if s.IsSuccess() {
		return s
	}
	return models.DepositStatusConfirmed
}

// authenticate returns the rejection event, or "" when the delivery may be processed
func (f *WebhookFlowImpl) authenticate(d WebhookDelivery) string {
	if d.DebugBypass && f.paymentsCfg.AllowDebugBypass && f.debugAllowed() {
		return ""
	}
	switch d.Source {
	case models.DepositMethodCoinbase:
		if f.coinbaseCfg.WebhookSecret == "" {
			return models.WebhookEventNoProviderKey
		}
		if strings.TrimSpace(d.Signature) == "" {
			return models.WebhookEventMissingSignature
		}
		if !VerifyCoinbaseSignature(f.coinbaseCfg.WebhookSecret, d.RawBody, d.Signature) {
			return models.WebhookEventBadSignature
		}
	case models.DepositMethodSquare:
		// Square signs the notification URL together with the body
		if f.squareCfg.WebhookSignatureKey == "" || f.squareCfg.WebhookNotificationURL == "" {
			return models.WebhookEventNoProviderKey
		}
		if strings.TrimSpace(d.Signature) == "" {
			return models.WebhookEventMissingSignature
		}
		if !VerifySquareSignature(f.squareCfg.WebhookSignatureKey, f.squareCfg.WebhookNotificationURL, d.RawBody, d.Signature) {
			return models.WebhookEventBadSignature
		}
	default:
		return models.WebhookEventNoProviderKey
	}
	return ""
}

// Handle never fails toward the provider except for authenticity problems
func (f *WebhookFlowImpl) Handle(ctx context.Context, d WebhookDelivery) (out *WebhookOutcome) {
	source := string(d.Source)
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = utils.UTCNow()
	}
	entry := &models.WebhookLog{Source: source}
	out = &WebhookOutcome{HTTPStatus: http.StatusOK}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("source", source).Errorf("webhook handler panic: %v", r)
			out = &WebhookOutcome{HTTPStatus: http.StatusOK, Event: models.WebhookEventHandlerError, DepositID: out.DepositID}
		}
		entry.Event = out.Event
		entry.HTTPStatus = out.HTTPStatus
		entry.DepositID = out.DepositID
		if out.Err != nil {
			msg := out.Err.Error()
			entry.ErrorMessage = &msg
		}
		f.logBestEffort(ctx, entry)
		webhookEventsTotal.WithLabelValues(source, out.Event).Inc()
	}()

	if reason := f.authenticate(d); reason != "" {
		out.HTTPStatus = http.StatusBadRequest
		out.Event = reason
		summary, _ := json.Marshal(map[string]bool{
			"has_signature": strings.TrimSpace(d.Signature) != "",
			"has_secret":    reason != models.WebhookEventNoProviderKey,
		})
		s := string(summary)
		entry.Payload = &s
		log.WithFields(log.Fields{"source": source, "event": reason}).Warn("webhook rejected")
		return out
	}

	f.archiveBestEffort(ctx, source, d)
	entry.Payload = truncatedPayload(d.RawBody)

	doc, err := utils.DecodeJSON(d.RawBody)
	if err != nil {
		out.Event = models.WebhookEventMalformed
		return out
	}
	if _, isObject := doc.(map[string]any); !isObject {
		out.Event = models.WebhookEventMalformed
		return out
	}

	ev := RulesFor(d.Source).Extract(doc)
	if ev.EventType != "" {
		t := ev.EventType
		entry.EventType = &t
	}
	candidates := append([]string{}, ev.ReferenceIDs...)
	if ev.CrossRef != "" {
		candidates = append(candidates, ev.CrossRef)
	}
	if len(candidates) > 0 {
		entry.CandidateIDs = pq.StringArray(candidates)
	}

	deposit, err := f.locate(ctx, d.Source, ev)
	if err != nil {
		return f.handlerError(out, source, err)
	}
	if deposit == nil {
		out.Event = models.WebhookEventDepositNotFound
		return out
	}
	out.DepositID = &deposit.ID

	if deposit.Status.IsTerminal() {
		out.Event = models.WebhookEventAlreadyHandled
		return out
	}

	class, indicator := ClassifyEvent(ev.Status, ev.EventType)
	switch class {
	case EventClassSuccess:
		if ev.AmountCents != nil && *ev.AmountCents != deposit.AmountCents {
			log.WithFields(log.Fields{
				"deposit_id":     deposit.ID,
				"deposit_cents":  deposit.AmountCents,
				"reported_cents": *ev.AmountCents,
			}).Warn("webhook amount differs from deposit amount, crediting deposit amount")
		}
		return f.applySuccess(ctx, out, d, deposit)
	case EventClassFailure:
		ok, err := f.depositRepo.TransitionFromPending(ctx, deposit.ID, FailureStatus(indicator), d.RawBody, d.ReceivedAt)
		if err != nil {
			return f.handlerError(out, source, err)
		}
		if !ok {
			out.Event = models.WebhookEventAlreadyHandled
			return out
		}
		out.Event = models.WebhookEventFailed
		return out
	default:
		out.Event = models.WebhookEventIgnored
		return out
	}
}

// locate tries provider references first, then the deposit id planted at checkout
func (f *WebhookFlowImpl) locate(ctx context.Context, method models.DepositMethod, ev ExtractedEvent) (*models.Deposit, error) {
	if len(ev.ReferenceIDs) > 0 {
		deposit, err := f.depositRepo.ByProviderRefs(ctx, method, ev.ReferenceIDs)
		if err != nil {
			return nil, err
		}
		if deposit != nil {
			return deposit, nil
		}
	}
	if ev.CrossRef == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(strings.TrimPrefix(ev.CrossRef, "deposit:")))
	if err != nil {
		return nil, nil
	}
	deposit, err := f.depositRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if deposit == nil || deposit.Method != method {
		return nil, nil
	}
	return deposit, nil
}

// applySuccess moves the deposit out of pending and credits the wallet in one transaction.
// Only the delivery whose conditional update wins credits.
func (f *WebhookFlowImpl) applySuccess(ctx context.Context, out *WebhookOutcome, d WebhookDelivery, deposit *models.Deposit) *WebhookOutcome {
	var credited bool
	var balance int64

	err := f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := f.depositRepo.TransitionFromPending(txCtx, deposit.ID, f.successStatus(), d.RawBody, d.ReceivedAt)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := f.walletRepo.CreateIfAbsent(txCtx, deposit.UserID); err != nil {
			return err
		}
		balance, err = f.walletRepo.Credit(txCtx, deposit.UserID, deposit.AmountCents)
		if err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return f.handlerError(out, string(d.Source), err)
	}
	if !credited {
		out.Event = models.WebhookEventAlreadyHandled
		return out
	}

	out.Event = models.WebhookEventPaid
	depositCreditedCentsTotal.WithLabelValues(string(deposit.Method)).Add(float64(deposit.AmountCents))
	log.WithFields(log.Fields{
		"deposit_id":    deposit.ID,
		"user_id":       deposit.UserID,
		"amount_cents":  deposit.AmountCents,
		"balance_cents": balance,
	}).Info("deposit credited")

	notice := services.DepositNotice{
		DepositID:    deposit.ID.String(),
		UserID:       deposit.UserID,
		Method:       string(deposit.Method),
		AmountCents:  deposit.AmountCents,
		BalanceCents: balance,
	}
	if err := f.notifier.DepositCredited(ctx, notice); err != nil {
		log.WithError(err).WithField("deposit_id", deposit.ID).Warn("deposit notification failed")
	}
	return out
}

func (f *WebhookFlowImpl) handlerError(out *WebhookOutcome, source string, err error) *WebhookOutcome {
	log.WithError(err).WithField("source", source).Error("webhook handler error")
	out.HTTPStatus = http.StatusOK
	out.Event = models.WebhookEventHandlerError
	out.Err = err
	if f.paymentsCfg.DebugReturnErrors && f.debugAllowed() {
		out.Debug = err.Error()
	}
	return out
}

// logBestEffort writes the audit row and never propagates a failure
func (f *WebhookFlowImpl) logBestEffort(ctx context.Context, entry *models.WebhookLog) {
	if f.logRepo == nil {
		return
	}
	if err := f.logRepo.Save(context.WithoutCancel(ctx), entry); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"source": entry.Source,
			"event":  entry.Event,
		}).Warn("failed to write webhook log")
	}
}

func (f *WebhookFlowImpl) archiveBestEffort(ctx context.Context, source string, d WebhookDelivery) {
	key, err := f.archive.Store(ctx, source, d.ReceivedAt, d.RawBody)
	if err != nil {
		log.WithError(err).WithField("source", source).Warn("failed to archive webhook payload")
		return
	}
	if key != "" {
		log.WithFields(log.Fields{"source": source, "key": key}).Debug("webhook payload archived")
	}
}

// truncatedPayload returns text postgres accepts: valid UTF-8, no NUL, at most maxLoggedPayload bytes
func truncatedPayload(raw []byte) *string {
	if len(raw) == 0 {
		return nil
	}
	s := strings.ToValidUTF8(strings.ReplaceAll(string(raw), "\x00", ""), "\uFFFD")
	if len(s) > maxLoggedPayload {
		cut := maxLoggedPayload
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return &s
}
