package profile

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"account_agent/internal/common"
	"account_agent/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(t *testing.T, f *serviceFixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	require.NoError(t, validation.RegisterValidations(v))

	signedIn := func(c *gin.Context) {
		c.Set(common.UserIDKey, "uid-1")
		c.Next()
	}
	router := gin.New()
	NewHandler(f.svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"), signedIn)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_OtherUsersProfileIsForbidden(t *testing.T) {
	f := newServiceFixture(t)
	router := setupRouter(t, f)

	w := doJSON(router, http.MethodGet, "/api/v1/profiles/uid-2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	f.store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestHandler_SaveRejectsInvalidFields(t *testing.T) {
	f := newServiceFixture(t)
	router := setupRouter(t, f)

	w := doJSON(router, http.MethodPut, "/api/v1/profiles/uid-1", map[string]string{"phoneNumber": "012"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PhoneNumber")
}

func TestHandler_SaveSanitizesFields(t *testing.T) {
	f := newServiceFixture(t)
	router := setupRouter(t, f)
	f.store.On("Exists", mock.Anything, "uid-1").Return(true, nil)
	f.store.On("SetMerge", mock.Anything, "uid-1", mock.MatchedBy(func(data map[string]interface{}) bool {
		return data[FieldPhoneNumber] == "5551234567" && data[FieldBio] == "hi" && data[FieldFirstName] == ""
	})).Return(nil).Once()

	w := doJSON(router, http.MethodPut, "/api/v1/profiles/uid-1",
		map[string]string{"phoneNumber": "(555) 123-4567", "bio": " hi<> ", "firstName": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	f.store.AssertExpectations(t)
}

func TestHandler_UpdateRejectsInvalidName(t *testing.T) {
	f := newServiceFixture(t)
	router := setupRouter(t, f)

	w := doJSON(router, http.MethodPatch, "/api/v1/profiles/uid-1", map[string]string{"lastName": "L33t"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	f.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_SaveOffline(t *testing.T) {
	f := newServiceFixture(t)
	router := setupRouter(t, f)
	f.store.On("Exists", mock.Anything, "uid-1").Return(false, errOffline)

	w := doJSON(router, http.MethodPut, "/api/v1/profiles/uid-1", map[string]string{"bio": "hello"})
	require.Equal(t, http.StatusOK, w.Code)

	var res common.Result[*Document]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Pending)
	assert.Equal(t, "hello", *res.Data.Bio)

	w = doJSON(router, http.MethodGet, "/api/v1/outbox?page=1&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Data       []PendingWrite     `json:"data"`
		Pagination *common.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "hello", page.Data[0].Fields[FieldBio])
	assert.Equal(t, int64(1), page.Pagination.TotalItems)
}

func TestHandler_GetTransientFailure(t *testing.T) {
	f := newServiceFixture(t)
	router := setupRouter(t, f)
	f.store.On("Get", mock.Anything, "uid-1").Return(nil, errOffline)

	w := doJSON(router, http.MethodGet, "/api/v1/profiles/uid-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), common.MsgConnection)
}
