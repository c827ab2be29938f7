package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	b, _ := io.ReadAll(params.Body)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3PayloadArchiveStore(t *testing.T) {
	putter := &fakePutter{}
	archive := NewS3PayloadArchiveWithClient(putter, "webhooks", "storefront/")
	at := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)

	key, err := archive.Store(context.Background(), "Square", at, []byte(`{"type":"payment.updated"}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "storefront/square/2025/03/07/"))
	assert.True(t, strings.HasSuffix(key, ".json"))
	assert.Equal(t, "webhooks", *putter.input.Bucket)
	assert.Equal(t, key, *putter.input.Key)
	assert.Equal(t, `{"type":"payment.updated"}`, putter.body)
}

func TestS3PayloadArchiveStoreError(t *testing.T) {
	archive := NewS3PayloadArchiveWithClient(&fakePutter{err: errors.New("access denied")}, "b", "")
	_, err := archive.Store(context.Background(), "coinbase", time.Now(), []byte(`{}`))
	assert.ErrorContains(t, err, "access denied")
}

type fakeTelegram struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramNotificationService(t *testing.T) {
	sender := &fakeTelegram{}
	svc := NewTelegramNotificationServiceWithSender(sender, -100123)

	err := svc.DepositCredited(context.Background(), DepositNotice{
		DepositID:    "dep-1",
		UserID:       "user-1",
		Method:       "square",
		AmountCents:  500,
		BalanceCents: 1250,
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Contains(t, msg.Text, "amount: $5.00")
	assert.Contains(t, msg.Text, "balance: $12.50")
	assert.Contains(t, msg.Text, "dep-1")

	sender.err = errors.New("chat not found")
	err = svc.DepositCredited(context.Background(), DepositNotice{DepositID: "dep-2"})
	assert.ErrorContains(t, err, "chat not found")
}

func TestDisabledCatalogCache(t *testing.T) {
	cache := NewRedisCatalogCache(nil, "sf:", time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, nil))
	services, hit, err := cache.Get(ctx)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, services)
	assert.NoError(t, cache.Invalidate(ctx))
}
