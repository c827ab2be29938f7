package services

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/dropsource/storefront/utils"
)

// DepositNotice describes a credited deposit for the ops channel
type DepositNotice struct {
	DepositID    string
	UserID       string
	Method       string
	AmountCents  int64
	BalanceCents int64
}

// NotificationService sends ops notifications
type NotificationService interface {
	DepositCredited(ctx context.Context, notice DepositNotice) error
}

// TelegramSender is the subset of tgbotapi.BotAPI used for notifications
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotificationService posts messages to one ops chat
type TelegramNotificationService struct {
	bot    TelegramSender
	chatID int64
}

// NewTelegramNotificationService connects to the bot API with token
func NewTelegramNotificationService(token string, chatID int64) (*TelegramNotificationService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return NewTelegramNotificationServiceWithSender(bot, chatID), nil
}

func NewTelegramNotificationServiceWithSender(bot TelegramSender, chatID int64) *TelegramNotificationService {
	return &TelegramNotificationService{bot: bot, chatID: chatID}
}

func (s *TelegramNotificationService) DepositCredited(ctx context.Context, n DepositNotice) error {
	text := fmt.Sprintf("Deposit credited\nmethod: %s\namount: $%s\nuser: %s\ndeposit: %s\nbalance: $%s",
		n.Method, utils.CentsToDollarString(n.AmountCents), n.UserID, n.DepositID, utils.CentsToDollarString(n.BalanceCents))
	msg := tgbotapi.NewMessage(s.chatID, text)
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// LogNotificationService only writes notices to the log
type LogNotificationService struct{}

func NewLogNotificationService() NotificationService {
	return &LogNotificationService{}
}

func (s *LogNotificationService) DepositCredited(ctx context.Context, n DepositNotice) error {
	log.WithFields(log.Fields{
		"deposit_id":    n.DepositID,
		"user_id":       n.UserID,
		"method":        n.Method,
		"amount_cents":  n.AmountCents,
		"balance_cents": n.BalanceCents,
	}).Info("deposit credited")
	return nil
}
