package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"gazette/internal/auth"
	"gazette/internal/billing"
	"gazette/internal/config"
	"gazette/internal/core"
	"gazette/internal/persistence"
)

// fakeNewsletterRepo is an in-memory NewsletterRepository.
type fakeNewsletterRepo struct {
	rows    []core.Newsletter
	listErr error
}

func (f *fakeNewsletterRepo) Create(ctx context.Context, n *core.Newsletter) error {
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNewsletterRepo) Get(ctx context.Context, id string) (*core.Newsletter, error) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			row := f.rows[i]
			return &row, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (f *fakeNewsletterRepo) ListRecent(ctx context.Context, limit int) ([]core.Newsletter, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	sorted := make([]core.Newsletter, len(f.rows))
	copy(sorted, f.rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// fakeUserRepo is an in-memory UserRepository keyed by user id.
type fakeUserRepo struct {
	users map[string]*core.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*core.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *core.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return persistence.ErrDuplicateEmail
		}
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) Get(ctx context.Context, id string) (*core.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (f *fakeUserRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*core.User, error) {
	for _, user := range f.users {
		if user.StripeCustomerID == customerID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (f *fakeUserRepo) List(ctx context.Context) ([]core.User, error) {
	var out []core.User
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

func (f *fakeUserRepo) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	user, ok := f.users[userID]
	if !ok {
		return persistence.ErrNotFound
	}
	user.StripeCustomerID = customerID
	return nil
}

func (f *fakeUserRepo) UpdateSubscription(ctx context.Context, customerID, subscriptionID, status string) error {
	for _, user := range f.users {
		if user.StripeCustomerID == customerID {
			user.StripeSubscriptionID = subscriptionID
			user.SubscriptionStatus = status
			user.IsSubscribed = status == "active"
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// fakeDatabase bundles the fake repositories.
type fakeDatabase struct {
	newsletters *fakeNewsletterRepo
	users       *fakeUserRepo
	pingErr     error
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		newsletters: &fakeNewsletterRepo{},
		users:       newFakeUserRepo(),
	}
}

func (f *fakeDatabase) Newsletters() persistence.NewsletterRepository { return f.newsletters }
func (f *fakeDatabase) Users() persistence.UserRepository             { return f.users }
func (f *fakeDatabase) Ping(ctx context.Context) error                { return f.pingErr }
func (f *fakeDatabase) Close() error                                  { return nil }

// fakeBilling scripts the billing provider.
type fakeBilling struct {
	checkoutURL string
	webhook     *billing.SubscriptionUpdate
	webhookErr  error

	cancelled []string
	deleted   []string
	cancelErr error
}

func (f *fakeBilling) EnsureCustomer(ctx context.Context, email, existingID string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}
	return "cus_new", nil
}

func (f *fakeBilling) CreateCheckoutSession(ctx context.Context, customerID string) (string, error) {
	return f.checkoutURL, nil
}

func (f *fakeBilling) CancelSubscription(ctx context.Context, subscriptionID string) error {
	f.cancelled = append(f.cancelled, subscriptionID)
	return f.cancelErr
}

func (f *fakeBilling) DeleteCustomer(ctx context.Context, customerID string) error {
	f.deleted = append(f.deleted, customerID)
	return nil
}

func (f *fakeBilling) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.SubscriptionUpdate, error) {
	if f.webhookErr != nil {
		return nil, f.webhookErr
	}
	return f.webhook, nil
}

type testEnv struct {
	server  *Server
	db      *fakeDatabase
	billing *fakeBilling
	tokens  *auth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenIssuer(config.Auth{JWTSecret: "test-secret"})
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	db := newFakeDatabase()
	provider := &fakeBilling{checkoutURL: "https://checkout.example/session"}
	srv := New(db, provider, tokens, config.Server{Host: "127.0.0.1", Port: 0})

	return &testEnv{server: srv, db: db, billing: provider, tokens: tokens}
}

// do sends a request through the full router, including middleware.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

// seedUser registers a user directly against the fake store and returns the
// user and a valid token for them.
func (e *testEnv) seedUser(t *testing.T, email, password string) (*core.User, string) {
	t.Helper()

	hashed, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	user := &core.User{
		ID:             "user-" + email,
		Email:          email,
		HashedPassword: hashed,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := e.db.users.Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	token, err := e.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	return user, token
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	resp := decodeBody[HealthResponse](t, rec)
	if resp.Status != "healthy" || resp.Checks["database"] != "ok" {
		t.Errorf("Unexpected health payload: %+v", resp)
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	env := newTestEnv(t)
	env.db.pingErr = errors.New("connection refused")

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	resp := decodeBody[HealthResponse](t, rec)
	if resp.Status != "unhealthy" || resp.Checks["database"] != "error" {
		t.Errorf("Unexpected health payload: %+v", resp)
	}
}

func TestRegisterIssuesToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/register", "", CredentialsRequest{
		Email:    "Reader@Example.com",
		Password: "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[TokenResponse](t, rec)
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Errorf("Unexpected token payload: %+v", resp)
	}

	// Email is normalized to lowercase before storage.
	if _, err := env.db.users.GetByEmail(context.Background(), "reader@example.com"); err != nil {
		t.Errorf("Expected normalized user row, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		detail   string
	}{
		{"missing at sign", "not-an-email", "hunter2hunter2", "A valid email is required"},
		{"empty email", "", "hunter2hunter2", "A valid email is required"},
		{"short password", "reader@example.com", "short", "Password must be at least 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/register", "", CredentialsRequest{
				Email:    tt.email,
				Password: tt.password,
			})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", rec.Code)
			}
			body := decodeBody[map[string]string](t, rec)
			if body["detail"] != tt.detail {
				t.Errorf("Expected detail %q, got %q", tt.detail, body["detail"])
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "reader@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodPost, "/register", "", CredentialsRequest{
		Email:    "reader@example.com",
		Password: "hunter2hunter2",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["detail"] != "Email already registered" {
		t.Errorf("Unexpected detail %q", body["detail"])
	}
	if len(env.db.users.users) != 1 {
		t.Errorf("Expected a single user row, got %d", len(env.db.users.users))
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "reader@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodPost, "/login", "", CredentialsRequest{
		Email:    "reader@example.com",
		Password: "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[TokenResponse](t, rec)
	if resp.AccessToken == "" {
		t.Error("Expected a token")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "reader@example.com", "hunter2hunter2")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "stranger@example.com", "hunter2hunter2"},
		{"wrong password", "reader@example.com", "not-the-password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/login", "", CredentialsRequest{
				Email:    tt.email,
				Password: tt.password,
			})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("Expected 401, got %d", rec.Code)
			}
			body := decodeBody[map[string]string](t, rec)
			if body["detail"] != "Incorrect email or password" {
				t.Errorf("Unexpected detail %q", body["detail"])
			}
		})
	}
}

func TestListNewslettersEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/newsletters", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for empty store, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["detail"] != "No newsletters found" {
		t.Errorf("Unexpected detail %q", body["detail"])
	}
}

func TestListNewslettersReturnsLastSevenNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		env.db.newsletters.rows = append(env.db.newsletters.rows, core.Newsletter{
			ID:        fmt.Sprintf("n-%d", i),
			Title:     fmt.Sprintf("Issue %d", i),
			Content:   "body",
			CreatedAt: base.AddDate(0, 0, i),
		})
	}

	rec := env.do(t, http.MethodGet, "/newsletters", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	list := decodeBody[[]core.Newsletter](t, rec)
	if len(list) != 7 {
		t.Fatalf("Expected 7 newsletters, got %d", len(list))
	}
	if list[0].ID != "n-9" {
		t.Errorf("Expected newest first, got %q", list[0].ID)
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Errorf("Newsletters out of order at %d", i)
		}
	}
}

func TestGetNewsletter(t *testing.T) {
	env := newTestEnv(t)
	env.db.newsletters.rows = append(env.db.newsletters.rows, core.Newsletter{
		ID:        "n-1",
		Title:     "Issue",
		Content:   "body",
		CreatedAt: time.Now().UTC(),
	})

	rec := env.do(t, http.MethodGet, "/newsletters/n-1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	got := decodeBody[core.Newsletter](t, rec)
	if got.ID != "n-1" || got.Title != "Issue" {
		t.Errorf("Unexpected newsletter %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/newsletters/n-missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown id, got %d", rec.Code)
	}
}

func TestCreateNewsletter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/newsletters", "", CreateNewsletterRequest{
		Title:   "Issue",
		Content: "body",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[core.Newsletter](t, rec)
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Errorf("Expected generated id and timestamp, got %+v", created)
	}
	if len(env.db.newsletters.rows) != 1 {
		t.Errorf("Expected one stored row, got %d", len(env.db.newsletters.rows))
	}

	rec = env.do(t, http.MethodPost, "/newsletters", "", CreateNewsletterRequest{Title: "no body"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing content, got %d", rec.Code)
	}
}

func TestMeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["detail"] != "Missing Authorization header" {
		t.Errorf("Unexpected detail %q", body["detail"])
	}

	rec = env.do(t, http.MethodGet, "/me", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for invalid token, got %d", rec.Code)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.seedUser(t, "reader@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodGet, "/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got := decodeBody[core.User](t, rec)
	if got.ID != user.ID || got.Email != "reader@example.com" {
		t.Errorf("Unexpected user %+v", got)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("Response must not leak password fields")
	}
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.seedUser(t, "reader@example.com", "hunter2hunter2")
	env.db.users.users[user.ID].StripeCustomerID = "cus_1"
	env.db.users.users[user.ID].StripeSubscriptionID = "sub_1"

	rec := env.do(t, http.MethodDelete, "/user", token, DeleteUserRequest{Password: "hunter2hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "deleted" {
		t.Errorf("Unexpected body %v", body)
	}

	if len(env.db.users.users) != 0 {
		t.Error("Expected user row to be removed")
	}
	if len(env.billing.cancelled) != 1 || env.billing.cancelled[0] != "sub_1" {
		t.Errorf("Expected subscription cancel, got %v", env.billing.cancelled)
	}
	if len(env.billing.deleted) != 1 || env.billing.deleted[0] != "cus_1" {
		t.Errorf("Expected customer delete, got %v", env.billing.deleted)
	}
}

func TestDeleteUserWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "reader@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodDelete, "/user", token, DeleteUserRequest{Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rec.Code)
	}
	if len(env.db.users.users) != 1 {
		t.Error("User must not be deleted on failed password check")
	}
}

func TestDeleteUserSurvivesBillingFailure(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "reader@example.com", "hunter2hunter2")
	env.billing.cancelErr = errors.New("stripe is down")

	rec := env.do(t, http.MethodDelete, "/user", token, DeleteUserRequest{Password: "hunter2hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 despite billing failure, got %d", rec.Code)
	}
	if len(env.db.users.users) != 0 {
		t.Error("Expected user row to be removed anyway")
	}
}

func TestCreateSubscription(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.seedUser(t, "reader@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodPost, "/subscription", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[CheckoutResponse](t, rec)
	if resp.URL != "https://checkout.example/session" {
		t.Errorf("Unexpected checkout URL %q", resp.URL)
	}

	// A freshly created customer id is persisted on the user row.
	stored := env.db.users.users[user.ID]
	if stored.StripeCustomerID != "cus_new" {
		t.Errorf("Expected stored customer id cus_new, got %q", stored.StripeCustomerID)
	}
}

func TestStripeWebhookAppliesUpdate(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedUser(t, "reader@example.com", "hunter2hunter2")
	env.db.users.users[user.ID].StripeCustomerID = "cus_1"
	env.billing.webhook = &billing.SubscriptionUpdate{
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		Status:         "active",
	}

	rec := env.do(t, http.MethodPost, "/stripe-webhook", "", map[string]string{"id": "evt_1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored := env.db.users.users[user.ID]
	if !stored.IsSubscribed || stored.StripeSubscriptionID != "sub_1" {
		t.Errorf("Expected subscription applied, got %+v", stored)
	}
}

func TestStripeWebhookErrors(t *testing.T) {
	tests := []struct {
		name       string
		webhookErr error
		update     *billing.SubscriptionUpdate
		wantStatus int
		wantDetail string
	}{
		{"bad signature", billing.ErrInvalidSignature, nil, http.StatusBadRequest, "Invalid signature"},
		{"bad payload", billing.ErrInvalidPayload, nil, http.StatusBadRequest, "Invalid payload"},
		{"unknown customer", nil, &billing.SubscriptionUpdate{CustomerID: "cus_ghost", Status: "active"}, http.StatusNotFound, "Unknown billing customer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.billing.webhookErr = tt.webhookErr
			env.billing.webhook = tt.update

			rec := env.do(t, http.MethodPost, "/stripe-webhook", "", map[string]string{"id": "evt_1"})
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, rec.Code)
			}
			body := decodeBody[map[string]string](t, rec)
			if body["detail"] != tt.wantDetail {
				t.Errorf("Expected detail %q, got %q", tt.wantDetail, body["detail"])
			}
		})
	}
}

func TestStripeWebhookIgnoredEvent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/stripe-webhook", "", map[string]string{"id": "evt_1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for ignored event, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "success" {
		t.Errorf("Unexpected body %v", body)
	}
}
