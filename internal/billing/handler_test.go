package billing

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo RepositoryPort) http.Handler {
	handler := NewHandler(slog.Default(), NewService(repo, nil))
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func TestCreateBillEndpoint(t *testing.T) {
	router := newTestRouter(newMockRepository())

	body := `{
		"customerName": "Cô Hường",
		"billDate": "2024-03-01",
		"lineItems": [{"name": "gạo", "unitPrice": 10, "quantity": 2}]
	}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/bills", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"lineTotal":20`)
}

func TestCreateBillEndpointValidatesBody(t *testing.T) {
	router := newTestRouter(newMockRepository())

	for _, body := range []string{
		`not json`,
		`{"customerName": "", "billDate": "2024-03-01", "lineItems": [{"name": "gạo"}]}`,
		`{"customerName": "x", "billDate": "2024-03-01", "lineItems": []}`,
		`{"customerName": "x", "billDate": "March 1st", "lineItems": [{"name": "gạo"}]}`,
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/bills", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestGetBillEndpointNotFound(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bills/0b93a8fa-9de9-4788-9b73-6e2910a025a1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bills/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListBillsEndpointParsesFilters(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo)
	alice := uuid.New()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/bills?customerId="+alice.String()+"&from=2024-01-01&to=2024-02-01&isDeleted=true", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	require.NotNil(t, repo.lastListReq.CustomerID)
	assert.Equal(t, alice, *repo.lastListReq.CustomerID)
	require.NotNil(t, repo.lastListReq.From)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), *repo.lastListReq.From)
	require.NotNil(t, repo.lastListReq.To)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), *repo.lastListReq.To)
	assert.True(t, repo.lastListReq.IsDeleted)
}

func TestListBillsEndpointRejectsConflictingDateFilters(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bills?billDate=2024-01-01&from=2024-01-01", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bills?isDeleted=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCustomerEndpointsRoundTrip(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/customers",
		strings.NewReader(`{"name": "Cô Hường", "phoneNumber": "0901234567"}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"co-huong"`)

	// Duplicate slug conflicts.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/customers",
		strings.NewReader(`{"name": "Co Huong"}`)))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pagination"`)
}
