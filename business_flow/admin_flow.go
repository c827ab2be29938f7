package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/app/services"
	"github.com/dropsource/storefront/config"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/repository"
	"github.com/dropsource/storefront/utils"
)

// AdminFlow serves the operator endpoints
type AdminFlow interface {
	ListDeposits(ctx context.Context, req *dto.AdminListDepositsRequest) (*dto.AdminListDepositsResponse, error)
	ExportDeposits(ctx context.Context, req *dto.AdminListDepositsRequest) (string, []byte, error)
	ListWebhookLogs(ctx context.Context, req *dto.AdminListWebhookLogsRequest) (*dto.AdminListWebhookLogsResponse, error)
	PanelBalance(ctx context.Context) (json.RawMessage, error)
	RefreshCatalog(ctx context.Context) (*dto.CatalogRefreshResponse, error)
	DBPing(ctx context.Context) *dto.DBPingResponse
	EnvReport() *dto.EnvReportResponse
}

// AdminFlowImpl implements AdminFlow
type AdminFlowImpl struct {
	depositRepo repository.DepositRepository
	walletRepo  repository.WalletRepository
	logRepo     repository.WebhookLogRepository
	catalogFlow CatalogFlow
	panel       services.PanelClient
	cfg         *config.ProductionConfig
}

func NewAdminFlow(
	depositRepo repository.DepositRepository,
	walletRepo repository.WalletRepository,
	logRepo repository.WebhookLogRepository,
	catalogFlow CatalogFlow,
	panel services.PanelClient,
	cfg *config.ProductionConfig,
) AdminFlow {
	return &AdminFlowImpl{
		depositRepo: depositRepo,
		walletRepo:  walletRepo,
		logRepo:     logRepo,
		catalogFlow: catalogFlow,
		panel:       panel,
		cfg:         cfg,
	}
}

func depositFilter(req *dto.AdminListDepositsRequest) models.DepositFilter {
	var filter models.DepositFilter
	if req == nil {
		return filter
	}
	if s := strings.TrimSpace(req.UserID); s != "" {
		filter.UserID = &s
	}
	if s := strings.TrimSpace(req.Status); s != "" {
		status := models.DepositStatus(s)
		filter.Status = &status
	}
	if s := strings.TrimSpace(req.Method); s != "" {
		method := models.DepositMethod(s)
		filter.Method = &method
	}
	return filter
}

func (f *AdminFlowImpl) ListDeposits(ctx context.Context, req *dto.AdminListDepositsRequest) (*dto.AdminListDepositsResponse, error) {
	filter := depositFilter(req)
	var limit, offset int
	if req != nil {
		limit, offset = req.Limit, req.Offset
	}
	limit, offset = clampPage(limit, offset, 50, 500)

	deposits, err := f.depositRepo.ByFilter(ctx, filter, "created_at DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_LIST_FAILED", "Failed to list deposits", err)
	}
	total, err := f.depositRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_COUNT_FAILED", "Failed to count deposits", err)
	}

	out := make([]dto.DepositDTO, 0, len(deposits))
	for _, d := range deposits {
		out = append(out, ToDepositDTO(*d))
	}
	return &dto.AdminListDepositsResponse{Deposits: out, Total: total, Limit: limit, Offset: offset}, nil
}

// ExportDeposits writes every matching deposit into one XLSX sheet
func (f *AdminFlowImpl) ExportDeposits(ctx context.Context, req *dto.AdminListDepositsRequest) (string, []byte, error) {
	deposits, err := f.depositRepo.ByFilter(ctx, depositFilter(req), "created_at DESC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("DEPOSIT_LIST_FAILED", "Failed to list deposits", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "deposits"
	xl.SetSheetName(xl.GetSheetName(0), sheet)
	header := []string{"id", "user_id", "method", "amount_cents", "amount_usd", "status", "provider_id", "provider_order_id", "credited_at", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, d := range deposits {
		row := ToDepositDTO(*d)
		record := []string{
			row.ID,
			row.UserID,
			row.Method,
			strconv.FormatInt(row.AmountCents, 10),
			utils.CentsToDollarString(row.AmountCents),
			row.Status,
			utils.DerefString(row.ProviderID),
			utils.DerefString(row.ProviderOrderID),
			utils.DerefString(row.CreditedAt),
			row.CreatedAt,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return "deposits.xlsx", buf.Bytes(), nil
}

func (f *AdminFlowImpl) ListWebhookLogs(ctx context.Context, req *dto.AdminListWebhookLogsRequest) (*dto.AdminListWebhookLogsResponse, error) {
	var filter models.WebhookLogFilter
	var limit, offset int
	if req != nil {
		if s := strings.TrimSpace(req.Source); s != "" {
			filter.Source = &s
		}
		if s := strings.TrimSpace(req.Event); s != "" {
			filter.Event = &s
		}
		limit, offset = req.Limit, req.Offset
	}
	limit, offset = clampPage(limit, offset, 50, 500)

	logs, err := f.logRepo.ByFilter(ctx, filter, "created_at DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("WEBHOOK_LOG_LIST_FAILED", "Failed to list webhook logs", err)
	}
	out := make([]dto.WebhookLogDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, ToWebhookLogDTO(*l))
	}
	return &dto.AdminListWebhookLogsResponse{Logs: out, Limit: limit, Offset: offset}, nil
}

func (f *AdminFlowImpl) PanelBalance(ctx context.Context) (json.RawMessage, error) {
	if f.panel == nil {
		return nil, ErrCatalogNotAvailable
	}
	raw, err := f.panel.Balance(ctx)
	if err != nil {
		return nil, NewBusinessError("PANEL_ERROR", panelMessage(err), errors.Join(ErrPanelFailed, err))
	}
	return raw, nil
}

func (f *AdminFlowImpl) RefreshCatalog(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
	return f.catalogFlow.Refresh(ctx)
}

// DBPing reads the wallet count and writes a probe row to the webhook log
func (f *AdminFlowImpl) DBPing(ctx context.Context) *dto.DBPingResponse {
	out := &dto.DBPingResponse{OK: true}

	count, err := f.walletRepo.Count(ctx, models.WalletFilter{})
	if err != nil {
		out.OK = false
		out.Error = err.Error()
	} else {
		out.WalletCount = count
	}

	note := `{"note":"db ping"}`
	probe := &models.WebhookLog{
		Source:     "debug",
		Event:      models.WebhookEventDBPing,
		HTTPStatus: 200,
		Payload:    &note,
	}
	if err := f.logRepo.Save(ctx, probe); err != nil {
		out.OK = false
		if out.Error == "" {
			out.Error = err.Error()
		}
	} else {
		out.LogWritten = true
	}
	return out
}

// EnvReport shows which settings are present, never their values
func (f *AdminFlowImpl) EnvReport() *dto.EnvReportResponse {
	c := f.cfg
	return &dto.EnvReportResponse{
		Environment:          c.Deployment.Environment,
		DepositSuccessStatus: c.Payments.DepositSuccessStatus,
		Present: map[string]bool{
			"panel_url":                 c.Panel.URL != "",
			"panel_key":                 c.Panel.APIKey != "",
			"database":                  c.Database.Host != "" && c.Database.Name != "",
			"redis":                     c.Cache.RedisURL != "",
			"public_base_url":           c.Server.PublicBaseURL != "",
			"coinbase_api_key":          c.Coinbase.APIKey != "",
			"coinbase_webhook_secret":   c.Coinbase.WebhookSecret != "",
			"square_access_token":       c.Square.AccessToken != "",
			"square_location_id":        c.Square.LocationID != "",
			"square_webhook_signature":  c.Square.WebhookSignatureKey != "",
			"square_webhook_url":        c.Square.WebhookNotificationURL != "",
			"identity_jwt_secret":       c.Security.IdentityJWTSecret != "",
			"admin_api_key_hash":        c.Security.AdminAPIKeyHash != "",
			"archive_bucket":            c.Archive.Enabled && c.Archive.Bucket != "",
			"telegram_notifier":         c.Notifier.TelegramBotToken != "" && c.Notifier.TelegramChatID != 0,
			"catalog_refresh_scheduler": c.Scheduler.CatalogRefreshEnabled,
		},
	}
}
