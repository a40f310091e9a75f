package ginx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiology/cvp/pkg/apierror"
)

type echoRequest struct {
	Name  string `json:"name" binding:"required"`
	Count int    `json:"count"`
}

func (r *echoRequest) IsValid() error {
	if r.Count < 0 {
		return apierror.NewErrorWithStatus("ValidationError", "count must not be negative", 400)
	}
	return nil
}

type echoResponse struct {
	Greeting string `json:"greeting"`
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdapt(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name       string
		handler    func(*gin.Context, *echoRequest) (*echoResponse, error)
		body       any
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			handler: func(_ *gin.Context, req *echoRequest) (*echoResponse, error) {
				return &echoResponse{Greeting: "hello " + req.Name}, nil
			},
			body:       gin.H{"name": "world"},
			wantStatus: http.StatusOK,
			wantBody:   "hello world",
		},
		{
			name: "missing required field",
			handler: func(_ *gin.Context, _ *echoRequest) (*echoResponse, error) {
				t.Fatal("handler should not be called")
				return nil, nil
			},
			body:       gin.H{"count": 1},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "IsValid rejects",
			handler: func(_ *gin.Context, _ *echoRequest) (*echoResponse, error) {
				t.Fatal("handler should not be called")
				return nil, nil
			},
			body:       gin.H{"name": "x", "count": -1},
			wantStatus: http.StatusBadRequest,
			wantBody:   "ValidationError",
		},
		{
			name: "apierror status propagated",
			handler: func(_ *gin.Context, _ *echoRequest) (*echoResponse, error) {
				return nil, apierror.ErrInvalidStateTransition
			},
			body:       gin.H{"name": "x"},
			wantStatus: http.StatusConflict,
			wantBody:   "InvalidStateTransition",
		},
		{
			name: "plain error becomes 500",
			handler: func(_ *gin.Context, _ *echoRequest) (*echoResponse, error) {
				return nil, errors.New("boom")
			},
			body:       gin.H{"name": "x"},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := newTestRouter()
			router.POST("/echo", Adapt(tc.handler))

			w := doJSON(t, router, http.MethodPost, "/echo", tc.body)
			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantBody != "" {
				assert.Contains(t, w.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestAdaptErr(t *testing.T) {
	t.Parallel()

	router := newTestRouter()
	router.POST("/ok", AdaptErr(func(_ *gin.Context, _ *echoRequest) error {
		return nil
	}))
	router.POST("/denied", AdaptErr(func(_ *gin.Context, _ *echoRequest) error {
		return apierror.ErrAccessDenied
	}))

	w := doJSON(t, router, http.MethodPost, "/ok", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPost, "/denied", gin.H{"name": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AccessDenied")
}

func TestAdaptGet(t *testing.T) {
	t.Parallel()

	router := newTestRouter()
	router.GET("/list", AdaptGet(func(_ *gin.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["a","b"]`, w.Body.String())
}

func TestRequestIDInErrorResponse(t *testing.T) {
	t.Parallel()

	router := newTestRouter()
	router.Use(func(ctx *gin.Context) {
		SetRequestID(ctx, "req-test-42")
		ctx.Next()
	})
	router.POST("/fail", Adapt(func(_ *gin.Context, _ *echoRequest) (*echoResponse, error) {
		return nil, apierror.ErrResourceNotFound
	}))

	w := doJSON(t, router, http.MethodPost, "/fail", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "req-test-42")
}
