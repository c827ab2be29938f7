package testing

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a user with a unique id and a wallet holding balanceCents
func (tf *TestFixtures) CreateTestUser(balanceCents int64) (*models.User, *models.Wallet, error) {
	id := "user-" + uuid.NewString()
	user := &models.User{
		ID:    id,
		Email: utils.ToPtr(id + "@example.com"),
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create test user: %w", err)
	}

	wallet := &models.Wallet{
		UserID:       id,
		BalanceCents: balanceCents,
	}
	if err := tf.DB.DB.Create(wallet).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create test wallet: %w", err)
	}
	return user, wallet, nil
}

// CreateTestDeposit creates a pending deposit for userID
func (tf *TestFixtures) CreateTestDeposit(userID string, method models.DepositMethod, amountCents int64, providerID *string) (*models.Deposit, error) {
	deposit := &models.Deposit{
		UserID:      userID,
		Method:      method,
		AmountCents: amountCents,
		ProviderID:  providerID,
	}
	if err := tf.DB.DB.Create(deposit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test deposit: %w", err)
	}
	return deposit, nil
}
