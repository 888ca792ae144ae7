package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"stillpoint_backend/internal/email"
	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/oauth"
	"stillpoint_backend/internal/payment"
	"stillpoint_backend/internal/repositories"

	"github.com/stripe/stripe-go/v79"
)

// In-memory fakes for the repository and provider interfaces. They mirror the
// guard semantics of the real implementations (unique checkout-session ids,
// terminal completed status, single-shot reset tokens) so service tests
// exercise the same transitions the database enforces.

type fakeSessionRepo struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*models.Session
}

func newFakeSessionRepo(sessions ...*models.Session) *fakeSessionRepo {
	r := &fakeSessionRepo{sessions: make(map[string]*models.Session)}
	for _, s := range sessions {
		if s.ID == "" {
			r.seq++
			s.ID = fmt.Sprintf("sess-%d", r.seq)
		}
		r.sessions[s.ID] = s
	}
	return r
}

func (r *fakeSessionRepo) FindByID(id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) FindPublished(category string, limit, offset int) ([]models.Session, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Session
	for _, s := range r.sessions {
		if !s.Published || s.ParentID != nil {
			continue
		}
		if category != "" && s.Category != category {
			continue
		}
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *fakeSessionRepo) Create(session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == "" {
		r.seq++
		session.ID = fmt.Sprintf("sess-%d", r.seq)
	}
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) Update(session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return repositories.ErrSessionNotFound
	}
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return repositories.ErrSessionNotFound
	}
	delete(r.sessions, id)
	for _, s := range r.sessions {
		if s.ParentID != nil && *s.ParentID == id {
			s.ParentID = nil
		}
	}
	return nil
}

func (r *fakeSessionRepo) CountChildren(parentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.ParentID != nil && *s.ParentID == parentID {
			n++
		}
	}
	return n, nil
}

type fakePurchaseRepo struct {
	mu        sync.Mutex
	seq       int
	purchases map[string]*models.Purchase // by id
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{purchases: make(map[string]*models.Purchase)}
}

func (r *fakePurchaseRepo) add(p *models.Purchase) *models.Purchase {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		r.seq++
		p.ID = fmt.Sprintf("purchase-%d", r.seq)
	}
	cp := *p
	r.purchases[p.ID] = &cp
	return p
}

func (r *fakePurchaseRepo) get(id string) *models.Purchase {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.purchases[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (r *fakePurchaseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.purchases)
}

func (r *fakePurchaseRepo) CreateIfAbsent(purchase *models.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.purchases {
		if p.CheckoutSessionID == purchase.CheckoutSessionID {
			return repositories.ErrPurchaseExists
		}
	}
	if purchase.ID == "" {
		r.seq++
		purchase.ID = fmt.Sprintf("purchase-%d", r.seq)
	}
	purchase.CreatedAt = time.Now()
	cp := *purchase
	r.purchases[purchase.ID] = &cp
	return nil
}

func (r *fakePurchaseRepo) FindByCheckoutSessionID(id string) (*models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.purchases {
		if p.CheckoutSessionID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPurchaseNotFound
}

func (r *fakePurchaseRepo) FindByPaymentIntentID(id string) (*models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.purchases {
		if p.PaymentIntentID != nil && *p.PaymentIntentID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPurchaseNotFound
}

func (r *fakePurchaseRepo) MarkCompleted(id string, paymentIntentID string, netAmount float64, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok || p.Status == models.PurchaseStatusCompleted {
		return repositories.ErrPurchaseNotFound
	}
	p.Status = models.PurchaseStatusCompleted
	p.AccessGranted = true
	p.PaymentIntentID = &paymentIntentID
	p.NetAmount = netAmount
	p.FailureReason = ""
	p.PaidAt = &paidAt
	return nil
}

func (r *fakePurchaseRepo) MarkFailed(id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok || p.Status == models.PurchaseStatusCompleted {
		return repositories.ErrPurchaseNotFound
	}
	p.Status = models.PurchaseStatusFailed
	p.AccessGranted = false
	p.FailureReason = reason
	return nil
}

func (r *fakePurchaseRepo) HasCompletedForSession(sessionID, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.purchases {
		if p.SessionID == sessionID && p.Email == email &&
			p.Status == models.PurchaseStatusCompleted && p.AccessGranted {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePurchaseRepo) ListByEmail(email string) ([]models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Purchase
	for _, p := range r.purchases {
		if p.Email == email {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePurchaseRepo) ListAll(limit, offset int) ([]models.Purchase, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Purchase
	for _, p := range r.purchases {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *fakePurchaseRepo) ExpireStalePending(cutoff time.Time, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.purchases {
		if p.Status == models.PurchaseStatusPending && p.CreatedAt.Before(cutoff) {
			p.Status = models.PurchaseStatusFailed
			p.FailureReason = reason
			n++
		}
	}
	return n, nil
}

type fakePaymentProvider struct {
	mu            sync.Mutex
	checkoutCalls []payment.CheckoutInput
	checkoutOut   *payment.CheckoutResult
	checkoutErr   error
	details       *payment.PaymentDetails
	detailsErr    error
}

func (f *fakePaymentProvider) CreateCheckoutSession(ctx context.Context, input payment.CheckoutInput) (*payment.CheckoutResult, error) {
	f.mu.Lock()
	f.checkoutCalls = append(f.checkoutCalls, input)
	f.mu.Unlock()
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	if f.checkoutOut != nil {
		return f.checkoutOut, nil
	}
	return &payment.CheckoutResult{
		CheckoutSessionID: "cs_test_1",
		URL:               "https://checkout.example/cs_test_1",
	}, nil
}

func (f *fakePaymentProvider) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	return stripe.Event{}, nil
}

func (f *fakePaymentProvider) GetPaymentDetails(ctx context.Context, paymentIntentID string) (*payment.PaymentDetails, error) {
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	if f.details != nil {
		return f.details, nil
	}
	return &payment.PaymentDetails{
		PaymentIntentID: paymentIntentID,
		Amount:          99,
		NetAmount:       95.5,
		Currency:        "AED",
		PaidAt:          time.Now(),
	}, nil
}

type fakeEmailProvider struct {
	mu   sync.Mutex
	sent []*email.Message
	err  error
}

func (f *fakeEmailProvider) Send(msg *email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeEmailProvider) sentTo(addr string) []*email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*email.Message
	for _, m := range f.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*models.User // by id
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		if u.ID == "" {
			r.seq++
			u.ID = fmt.Sprintf("user-%d", r.seq)
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) FindByID(id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) FindByVerificationToken(token string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if token != "" && u.VerificationToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		r.seq++
		user.ID = fmt.Sprintf("user-%d", r.seq)
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdatePassword(userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) VerifyUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.IsVerified = true
	u.VerificationToken = ""
	return nil
}

func (r *fakeUserRepo) FindAll(limit, offset int) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) CountAll() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken // by token value
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (r *fakeRefreshTokenRepo) Create(token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.Token] = &cp
	return nil
}

func (r *fakeRefreshTokenRepo) FindByToken(token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, repositories.ErrRefreshTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRefreshTokenRepo) DeleteByToken(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token]; !ok {
		return repositories.ErrRefreshTokenNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteByUserID(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, k)
		}
	}
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteExpired() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *fakeRefreshTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

type fakePasswordResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.PasswordResetToken
}

func newFakePasswordResetRepo() *fakePasswordResetRepo {
	return &fakePasswordResetRepo{tokens: make(map[string]*models.PasswordResetToken)}
}

func (r *fakePasswordResetRepo) Create(token *models.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.Token] = &cp
	return nil
}

func (r *fakePasswordResetRepo) FindByToken(token string) (*models.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, repositories.ErrResetTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakePasswordResetRepo) MarkUsed(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok || t.Used {
		return repositories.ErrResetTokenNotFound
	}
	t.Used = true
	return nil
}

func (r *fakePasswordResetRepo) InvalidateForEmail(email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Email == email {
			t.Used = true
		}
	}
	return nil
}

func (r *fakePasswordResetRepo) DeleteExpired() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(now) || t.Used {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *fakePasswordResetRepo) latestFor(email string) *models.PasswordResetToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.PasswordResetToken
	for _, t := range r.tokens {
		if t.Email != email || t.Used {
			continue
		}
		if latest == nil || t.ExpiresAt.After(latest.ExpiresAt) {
			cp := *t
			latest = &cp
		}
	}
	return latest
}

type fakeGoogleVerifier struct {
	identity *oauth.GoogleIdentity
	err      error
}

func (f *fakeGoogleVerifier) Verify(ctx context.Context, idToken string) (*oauth.GoogleIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

// fakeStorage signs keys with a recognizable prefix so entitlement tests can
// tell signed keys from pass-through URLs.
type fakeStorage struct {
	signErr error
}

func (f *fakeStorage) Save(ctx context.Context, path string, reader io.Reader, contentType string) error {
	return nil
}

func (f *fakeStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	return nil, errors.New("not supported")
}

func (f *fakeStorage) Delete(ctx context.Context, path string) error { return nil }

func (f *fakeStorage) Exists(ctx context.Context, path string) (bool, error) { return true, nil }

func (f *fakeStorage) GetURL(ctx context.Context, path string) (string, error) {
	return "https://files.example/" + path, nil
}

func (f *fakeStorage) GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example/" + path, nil
}

func (f *fakeStorage) GetSize(ctx context.Context, path string) (int64, error) { return 0, nil }
