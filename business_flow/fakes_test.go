package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropsource/storefront/app/services"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/repository"
)

// memStore backs every fake repository; webhook logs survive rollbacks like the real table does
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[string]models.User
	wallets  map[string]models.Wallet
	deposits map[uuid.UUID]models.Deposit
	orders   map[uuid.UUID]models.Order
	logs     []models.WebhookLog

	upsertErr      error
	walletReadErr  error
	depositRefErr  error
	logErr         error
	orderUpdateErr error
}

type memSnapshot struct {
	users    map[string]models.User
	wallets  map[string]models.Wallet
	deposits map[uuid.UUID]models.Deposit
	orders   map[uuid.UUID]models.Order
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    make(map[string]models.User),
		wallets:  make(map[string]models.Wallet),
		deposits: make(map[uuid.UUID]models.Deposit),
		orders:   make(map[uuid.UUID]models.Order),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		users:    make(map[string]models.User, len(s.users)),
		wallets:  make(map[string]models.Wallet, len(s.wallets)),
		deposits: make(map[uuid.UUID]models.Deposit, len(s.deposits)),
		orders:   make(map[uuid.UUID]models.Order, len(s.orders)),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.wallets {
		snap.wallets[k] = v
	}
	for k, v := range s.deposits {
		snap.deposits[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.wallets = snap.wallets
	s.deposits = snap.deposits
	s.orders = snap.orders
}

func (s *memStore) balance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[userID].BalanceCents
}

func (s *memStore) setBalance(userID string, cents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		s.users[userID] = models.User{ID: userID}
	}
	w := s.wallets[userID]
	w.UserID = userID
	w.Currency = "usd"
	w.BalanceCents = cents
	s.wallets[userID] = w
}

func (s *memStore) deposit(id uuid.UUID) models.Deposit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deposits[id]
}

func (s *memStore) depositCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deposits)
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) allOrders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

func (s *memStore) webhookLogs() []models.WebhookLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WebhookLog{}, s.logs...)
}

// fakeTx serializes transactions and restores the store when fn fails.
// commitErr fails every commit, or only the commitErrAt-th one when that is set.
type fakeTx struct {
	store       *memStore
	mu          sync.Mutex
	commitErr   error
	commitErrAt int
	calls       int
}

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(repository.TxContextKey) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls++
	snap := t.store.snapshot()
	err := fn(context.WithValue(ctx, repository.TxContextKey, true))
	if err == nil && t.commitErr != nil && (t.commitErrAt == 0 || t.commitErrAt == t.calls) {
		err = t.commitErr
	}
	if err != nil {
		t.store.restore(snap)
	}
	return err
}

type fakeUserRepo struct{ s *memStore }

func (r fakeUserRepo) ByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r fakeUserRepo) Upsert(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.upsertErr != nil {
		return r.s.upsertErr
	}
	existing, ok := r.s.users[user.ID]
	if ok && user.Email == nil {
		user.Email = existing.Email
	}
	r.s.users[user.ID] = *user
	return nil
}

type fakeWalletRepo struct{ s *memStore }

func (r fakeWalletRepo) ByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.walletReadErr != nil {
		return nil, r.s.walletReadErr
	}
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r fakeWalletRepo) ByFilter(ctx context.Context, filter models.WalletFilter, orderBy string, limit, offset int) ([]*models.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Wallet
	for _, w := range r.s.wallets {
		if filter.UserID != nil && w.UserID != *filter.UserID {
			continue
		}
		w := w
		out = append(out, &w)
	}
	return out, nil
}

func (r fakeWalletRepo) Count(ctx context.Context, filter models.WalletFilter) (int64, error) {
	list, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(list)), err
}

func (r fakeWalletRepo) Save(ctx context.Context, wallet *models.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.wallets[wallet.UserID] = *wallet
	return nil
}

func (r fakeWalletRepo) CreateIfAbsent(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[userID]; ok {
		return nil
	}
	r.s.wallets[userID] = models.Wallet{UUID: uuid.New(), UserID: userID, Currency: "usd", CreatedAt: r.s.tick()}
	return nil
}

func (r fakeWalletRepo) Credit(ctx context.Context, userID string, amountCents int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return 0, errors.New("wallet not found")
	}
	w.BalanceCents += amountCents
	r.s.wallets[userID] = w
	return w.BalanceCents, nil
}

func (r fakeWalletRepo) Debit(ctx context.Context, userID string, amountCents int64) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok || w.BalanceCents < amountCents {
		return 0, false, nil
	}
	w.BalanceCents -= amountCents
	r.s.wallets[userID] = w
	return w.BalanceCents, true, nil
}

type fakeDepositRepo struct{ s *memStore }

func (r fakeDepositRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deposits[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r fakeDepositRepo) ByProviderRefs(ctx context.Context, method models.DepositMethod, refs []string) (*models.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.depositRefErr != nil {
		return nil, r.s.depositRefErr
	}
	var best *models.Deposit
	for _, d := range r.s.deposits {
		if d.Method != method {
			continue
		}
		for _, ref := range refs {
			if (d.ProviderID != nil && *d.ProviderID == ref) || (d.ProviderOrderID != nil && *d.ProviderOrderID == ref) {
				if best == nil || d.CreatedAt.After(best.CreatedAt) {
					d := d
					best = &d
				}
				break
			}
		}
	}
	return best, nil
}

func (r fakeDepositRepo) ByFilter(ctx context.Context, filter models.DepositFilter, orderBy string, limit, offset int) ([]*models.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Deposit
	for _, d := range r.s.deposits {
		if filter.UserID != nil && d.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.Method != nil && d.Method != *filter.Method {
			continue
		}
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeDepositRepo) Count(ctx context.Context, filter models.DepositFilter) (int64, error) {
	list, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(list)), err
}

func (r fakeDepositRepo) Save(ctx context.Context, deposit *models.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if deposit.ID == uuid.Nil {
		deposit.ID = uuid.New()
	}
	if deposit.Status == "" {
		deposit.Status = models.DepositStatusPending
	}
	now := r.s.tick()
	deposit.CreatedAt, deposit.UpdatedAt = now, now
	r.s.deposits[deposit.ID] = *deposit
	return nil
}

func (r fakeDepositRepo) SetProviderRefs(ctx context.Context, id uuid.UUID, providerID string, providerOrderID *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := r.s.deposits[id]
	d.ProviderID = &providerID
	d.ProviderOrderID = providerOrderID
	r.s.deposits[id] = d
	return nil
}

func (r fakeDepositRepo) MarkFailed(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := r.s.deposits[id]
	if d.Status != models.DepositStatusPending {
		return nil
	}
	d.Status = models.DepositStatusFailed
	d.ProviderPayload = payload
	r.s.deposits[id] = d
	return nil
}

func (r fakeDepositRepo) TransitionFromPending(ctx context.Context, id uuid.UUID, status models.DepositStatus, payload json.RawMessage, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deposits[id]
	if !ok || d.Status != models.DepositStatusPending {
		return false, nil
	}
	d.Status = status
	if json.Valid(payload) {
		d.ProviderPayload = payload
	}
	if status.IsSuccess() {
		d.CreditedAt = &at
	}
	r.s.deposits[id] = d
	return true, nil
}

type fakeWebhookLogRepo struct{ s *memStore }

func (r fakeWebhookLogRepo) Save(ctx context.Context, l *models.WebhookLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.logErr != nil {
		return r.s.logErr
	}
	l.ID = uint(len(r.s.logs) + 1)
	l.CreatedAt = r.s.tick()
	r.s.logs = append(r.s.logs, *l)
	return nil
}

func (r fakeWebhookLogRepo) ByFilter(ctx context.Context, filter models.WebhookLogFilter, orderBy string, limit, offset int) ([]*models.WebhookLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.WebhookLog
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		l := r.s.logs[i]
		if filter.Source != nil && l.Source != *filter.Source {
			continue
		}
		if filter.Event != nil && l.Event != *filter.Event {
			continue
		}
		out = append(out, &l)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeOrderRepo struct{ s *memStore }

func (r fakeOrderRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r fakeOrderRepo) ByFilter(ctx context.Context, filter models.OrderFilter, orderBy string, limit, offset int) ([]*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Order
	for _, o := range r.s.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeOrderRepo) Save(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := r.s.tick()
	order.CreatedAt, order.UpdatedAt = now, now
	r.s.orders[order.ID] = *order
	return nil
}

func (r fakeOrderRepo) Update(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.orderUpdateErr != nil {
		return r.s.orderUpdateErr
	}
	order.UpdatedAt = r.s.tick()
	r.s.orders[order.ID] = *order
	return nil
}

// fakePanel records calls and replays canned replies
type fakePanel struct {
	mu          sync.Mutex
	servicesRaw json.RawMessage
	servicesErr error
	addErr      error
	actionRaw   json.RawMessage
	actionErr   error
	balanceRaw  json.RawMessage
	calls       []string
	nextOrder   int
}

func (p *fakePanel) record(action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, action)
}

func (p *fakePanel) callCount(action string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == action {
			n++
		}
	}
	return n
}

func (p *fakePanel) Call(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	p.record(action)
	return p.actionRaw, p.actionErr
}

func (p *fakePanel) Services(ctx context.Context) (json.RawMessage, error) {
	p.record("services")
	return p.servicesRaw, p.servicesErr
}

func (p *fakePanel) AddOrder(ctx context.Context, in services.PanelOrderInput) (*services.PanelAddResult, error) {
	p.record("add")
	if p.addErr != nil {
		return nil, p.addErr
	}
	p.mu.Lock()
	p.nextOrder++
	id := strconv.Itoa(1000 + p.nextOrder)
	p.mu.Unlock()
	return &services.PanelAddResult{OrderID: id, Raw: json.RawMessage(`{"order":` + id + `}`)}, nil
}

func (p *fakePanel) OrderStatus(ctx context.Context, providerOrderID string) (json.RawMessage, error) {
	p.record("status")
	return p.actionRaw, p.actionErr
}

func (p *fakePanel) Refill(ctx context.Context, providerOrderID string) (json.RawMessage, error) {
	p.record("refill")
	return p.actionRaw, p.actionErr
}

func (p *fakePanel) Cancel(ctx context.Context, providerOrderID string) (json.RawMessage, error) {
	p.record("cancel")
	return p.actionRaw, p.actionErr
}

func (p *fakePanel) Balance(ctx context.Context) (json.RawMessage, error) {
	p.record("balance")
	return p.balanceRaw, p.actionErr
}

// fakeProvider records checkout requests
type fakeProvider struct {
	mu     sync.Mutex
	name   string
	env    string
	err    error
	inputs []services.CheckoutInput
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Env() string { return p.env }

func (p *fakeProvider) CreateCheckout(ctx context.Context, in services.CheckoutInput) (*services.CheckoutResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputs = append(p.inputs, in)
	if p.err != nil {
		return nil, p.err
	}
	orderID := "order-" + in.DepositID
	return &services.CheckoutResult{
		URL:             "https://checkout.example/" + in.DepositID,
		ProviderID:      "ref-" + in.DepositID,
		ProviderOrderID: &orderID,
	}, nil
}

// memCatalogCache is a map-backed CatalogCache
type memCatalogCache struct {
	mu       sync.Mutex
	services []models.Service
	hit      bool
	getErr   error
}

func (c *memCatalogCache) Get(ctx context.Context) ([]models.Service, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	return c.services, c.hit, nil
}

func (c *memCatalogCache) Set(ctx context.Context, list []models.Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services = list
	c.hit = true
	return nil
}

func (c *memCatalogCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services = nil
	c.hit = false
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []services.DepositNotice
}

func (n *recordingNotifier) DepositCredited(ctx context.Context, notice services.DepositNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}
