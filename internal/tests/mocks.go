package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Update
// emulates the version-conditioned write of the real store so concurrency
// tests see the same winner/loser behavior.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	GetError    error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{rides: make(map[string]*domain.Ride)}
}

// AddRide seeds a ride into the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.RiderID == riderID && !r.Status.IsTerminal() {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) ListActive(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0)
	for _, r := range m.rides {
		if !r.Status.IsTerminal() {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rides[ride.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != ride.Version {
		return repository.ErrVersionConflict
	}
	copy := *ride
	copy.Version++
	m.rides[ride.ID] = &copy
	ride.Version++
	return nil
}

// GetRide returns the stored ride for test assertions.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError       error
	UpdateStatusError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[string]*domain.Driver)}
}

// AddDriver seeds a driver into the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		copy := *d
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Status = status
	return nil
}

func (m *MockDriverRepository) RecordOfferResult(ctx context.Context, id string, accepted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.OffersReceived++
	if accepted {
		driver.OffersAccepted++
	}
	return nil
}

// GetDriver returns the stored driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK WALLET REPOSITORY
// ──────────────────────────────────────────────

// MockWalletRepository is a mock implementation of WalletRepository.
type MockWalletRepository struct {
	mu           sync.RWMutex
	wallets      map[string]*domain.Wallet // keyed by user ID
	transactions map[string][]*domain.WalletTransaction

	// Error injection
	AppendError error
}

// NewMockWalletRepository creates a new mock wallet repository.
func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		wallets:      make(map[string]*domain.Wallet),
		transactions: make(map[string][]*domain.WalletTransaction),
	}
}

// AddWallet seeds a wallet into the mock repository.
func (m *MockWalletRepository) AddWallet(wallet *domain.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *wallet
	m.wallets[wallet.UserID] = &copy
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *wallet
	m.wallets[wallet.UserID] = &copy
	return nil
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wallet, ok := m.wallets[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *wallet
	return &copy, nil
}

func (m *MockWalletRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	return m.GetByUserID(ctx, userID)
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, walletID string, balance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wallets {
		if w.ID == walletID {
			w.Balance = balance
			w.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockWalletRepository) AppendTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *tx
	m.transactions[tx.WalletID] = append(m.transactions[tx.WalletID], &copy)
	return nil
}

func (m *MockWalletRepository) ListTransactions(ctx context.Context, walletID string, offset, limit int) ([]*domain.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txs := make([]*domain.WalletTransaction, len(m.transactions[walletID]))
	for i, tx := range m.transactions[walletID] {
		copy := *tx
		txs[i] = &copy
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	if offset >= len(txs) {
		return []*domain.WalletTransaction{}, nil
	}
	end := offset + limit
	if end > len(txs) {
		end = len(txs)
	}
	return txs[offset:end], nil
}

func (m *MockWalletRepository) SumTransactions(ctx context.Context, walletID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, tx := range m.transactions[walletID] {
		sum += tx.Amount
	}
	return sum, nil
}

// GetWallet returns the stored wallet for test assertions.
func (m *MockWalletRepository) GetWallet(userID string) *domain.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wallets[userID]
}

// TransactionCount returns the number of stored ledger entries.
func (m *MockWalletRepository) TransactionCount(walletID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions[walletID])
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[string]*domain.Payment)}
}

// AddPayment seeds a payment into the mock repository.
func (m *MockPaymentRepository) AddPayment(p *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *p
	m.payments[p.ID] = &copy
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *payment
	m.payments[payment.ID] = &copy
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) GetByRideID(ctx context.Context, rideID string) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Payment, 0)
	for _, p := range m.payments {
		if p.RideID == rideID {
			copy := *p
			result = append(result, &copy)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	payment.Status = status
	payment.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockPaymentRepository) UpdateResult(ctx context.Context, id string, status domain.PaymentStatus, transactionID, gatewayResponse string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	payment.Status = status
	payment.TransactionID = transactionID
	payment.GatewayResponse = gatewayResponse
	payment.UpdatedAt = time.Now().UTC()
	return nil
}

// GetPayment returns the stored payment for test assertions.
func (m *MockPaymentRepository) GetPayment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payments[id]
}

// ──────────────────────────────────────────────
// MOCK UNIT OF WORK
// ──────────────────────────────────────────────

// MockUnitOfWork runs the callback directly against the shared mocks.
// There is no rollback; tests that exercise failure paths must assert at
// the point before the failing step mutates state.
type MockUnitOfWork struct {
	Repos repository.Repos

	// RunError makes Run fail before invoking the callback.
	RunError error

	RunCallCount int32
}

// NewMockUnitOfWork creates a unit of work over the given mock repos.
func NewMockUnitOfWork(repos repository.Repos) *MockUnitOfWork {
	return &MockUnitOfWork{Repos: repos}
}

func (m *MockUnitOfWork) Run(ctx context.Context, fn func(repository.Repos) error) error {
	atomic.AddInt32(&m.RunCallCount, 1)
	if m.RunError != nil {
		return m.RunError
	}
	return fn(m.Repos)
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLocationStore is an in-memory LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation

	// Error injection
	NearbyError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[string]redis.DriverLocation)}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.NearbyError != nil {
		return nil, m.NearbyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]redis.DriverLocation, 0)
	for _, loc := range m.locations {
		if approxDistanceKm(lat, lng, loc.Lat, loc.Lng) <= radiusKm {
			result = append(result, loc)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return approxDistanceKm(lat, lng, result[i].Lat, result[i].Lng) <
			approxDistanceKm(lat, lng, result[j].Lat, result[j].Lng)
	})
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// approxDistanceKm is good enough for test geometry near the equator.
func approxDistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	if dLat < 0 {
		dLat = -dLat
	}
	if dLng < 0 {
		dLng = -dLng
	}
	return (dLat + dLng) * 111.0
}

// MockLockStore is an in-memory LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireOfferLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[driverID] {
		return false, nil
	}
	m.locks[driverID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseOfferLock(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, driverID)
	return nil
}

// MockCacheStore is an in-memory CacheStoreInterface.
type MockCacheStore struct {
	mu      sync.RWMutex
	drivers map[string]*redis.CachedDriver
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{drivers: make(map[string]*redis.CachedDriver)}
}

func (m *MockCacheStore) GetDriver(ctx context.Context, driverID string) (*redis.CachedDriver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[driverID]
	if !ok {
		return nil, nil
	}
	copy := *d
	return &copy, nil
}

func (m *MockCacheStore) SetDriver(ctx context.Context, driver *redis.CachedDriver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, driverID)
	return nil
}

// ──────────────────────────────────────────────
// CAPTURE NOTIFIER
// ──────────────────────────────────────────────

// CaptureNotifier records every notification for assertions.
type CaptureNotifier struct {
	mu sync.Mutex

	Offers    []string // "rideID:driverID"
	Accepted  []string
	Changed   []string
	Cancelled []string
	Unmatched []string
	SOS       []string
}

// NewCaptureNotifier creates a capture notifier.
func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{}
}

func (n *CaptureNotifier) OfferSent(ctx context.Context, ride *domain.Ride, driverID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Offers = append(n.Offers, ride.ID+":"+driverID)
}

func (n *CaptureNotifier) RideAccepted(ctx context.Context, ride *domain.Ride) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Accepted = append(n.Accepted, ride.ID)
}

func (n *CaptureNotifier) RideStatusChanged(ctx context.Context, ride *domain.Ride) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Changed = append(n.Changed, ride.ID+":"+string(ride.Status))
}

func (n *CaptureNotifier) RideCancelled(ctx context.Context, ride *domain.Ride) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Cancelled = append(n.Cancelled, ride.ID)
}

func (n *CaptureNotifier) RideUnmatched(ctx context.Context, ride *domain.Ride) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Unmatched = append(n.Unmatched, ride.ID)
}

func (n *CaptureNotifier) SOSTriggered(ctx context.Context, ride *domain.Ride) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.SOS = append(n.SOS, ride.ID)
}

// UnmatchedCount returns how many unmatched notifications were recorded.
func (n *CaptureNotifier) UnmatchedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Unmatched)
}

// OfferCount returns how many offers were recorded.
func (n *CaptureNotifier) OfferCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Offers)
}
