package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountStore struct {
	accounts map[string]*Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[string]*Account{}}
}

func (f *fakeAccountStore) GetByID(ctx context.Context, id string) (*Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (f *fakeAccountStore) Create(ctx context.Context, a *Account) error {
	clone := *a
	f.accounts[a.ID] = &clone
	return nil
}

func (f *fakeAccountStore) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := f.accounts[id]; !ok {
		return 0, nil
	}
	delete(f.accounts, id)
	return 1, nil
}

func (f *fakeAccountStore) UpdateID(ctx context.Context, oldID, newID string) (int64, error) {
	a, ok := f.accounts[oldID]
	if !ok {
		return 0, nil
	}
	delete(f.accounts, oldID)
	a.ID = newID
	f.accounts[newID] = a
	return 1, nil
}

var testSecret = []byte("test-secret")

func newTestService() (*Service, *fakeAccountStore) {
	store := newFakeAccountStore()
	return &Service{store: store, secret: testSecret}, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()

	require.NoError(t, svc.Register(context.Background(), "librarian", "correct horse", RoleAdmin))

	token, err := svc.Login(context.Background(), "librarian", "correct horse")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) { return testSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "librarian", claims["sub"])
	assert.Equal(t, RoleAdmin, claims["role"])
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	require.NoError(t, svc.Register(context.Background(), "user1", "password123", ""))

	_, err := svc.Login(context.Background(), "user1", "wrong")
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), "nobody", "password123")
	assert.Error(t, err)
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, store := newTestService()
	require.NoError(t, svc.Register(context.Background(), "user1", "password123", ""))
	store.accounts["user1"].IsDisabled = true

	_, err := svc.Login(context.Background(), "user1", "password123")
	assert.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()

	assert.ErrorIs(t, svc.Register(context.Background(), "u", "short", ""), ErrWeakPassword)

	require.NoError(t, svc.Register(context.Background(), "dup", "password123", ""))
	assert.ErrorIs(t, svc.Register(context.Background(), "dup", "password123", ""), ErrAlreadyExists)
}

func TestRequireAuthAndRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService()
	require.NoError(t, svc.Register(context.Background(), "admin1", "password123", RoleAdmin))
	require.NoError(t, svc.Register(context.Background(), "user1", "password123", RoleUser))

	r := gin.New()
	guarded := r.Group("/", RequireAuth(testSecret), RequireRole(RoleAdmin))
	guarded.GET("/admin-only", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	adminToken, err := svc.Login(context.Background(), "admin1", "password123")
	require.NoError(t, err)
	userToken, err := svc.Login(context.Background(), "user1", "password123")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(adminToken))
	assert.Equal(t, http.StatusForbidden, do(userToken))
	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("not-a-token"))
}
