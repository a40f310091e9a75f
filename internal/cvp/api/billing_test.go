package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/adiology/cvp/internal/cvp/entity"
)

// MockBillingService 是 BillingService 的 mock 实现
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) DescribeRecords(ctx context.Context, tenantID string, req *entity.DescribeBillingRecordsRequest) (*entity.DescribeBillingRecordsResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DescribeBillingRecordsResponse), args.Error(1)
}

func (m *MockBillingService) Statistics(ctx context.Context, tenantID string) (*entity.BillingStatistics, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.BillingStatistics), args.Error(1)
}

func newBillingRouter(billingService BillingServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	billingAPI := &Billing{billingService: billingService}
	apiGroup := router.Group("/api")
	apiGroup.Use(func(ctx *gin.Context) {
		ctx.Set(tenantKey, testTenant)
	})
	billingAPI.RegisterRoutes(apiGroup)
	return router
}

func TestBilling_DescribeRecords(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name         string
		req          *entity.DescribeBillingRecordsRequest
		mockSetup    func(*MockBillingService)
		expectStatus int
		expectCount  int
	}{
		{
			name: "all records",
			req:  &entity.DescribeBillingRecordsRequest{},
			mockSetup: func(m *MockBillingService) {
				m.On("DescribeRecords", mock.Anything, testTenant, mock.AnythingOfType("*entity.DescribeBillingRecordsRequest")).
					Return(&entity.DescribeBillingRecordsResponse{
						Records: []entity.BillingRecord{
							{ID: "bill-1", Kind: entity.BillingKindCreationFee, AmountCents: 3644},
							{ID: "bill-2", Kind: entity.BillingKindUsage, AmountCents: 10},
						},
					}, nil)
			},
			expectStatus: http.StatusOK,
			expectCount:  2,
		},
		{
			name: "filtered by VM",
			req:  &entity.DescribeBillingRecordsRequest{VMID: "vm-1", Kind: entity.BillingKindRefund},
			mockSetup: func(m *MockBillingService) {
				m.On("DescribeRecords", mock.Anything, testTenant, mock.AnythingOfType("*entity.DescribeBillingRecordsRequest")).
					Return(&entity.DescribeBillingRecordsResponse{
						Records: []entity.BillingRecord{
							{ID: "bill-3", VMID: "vm-1", Kind: entity.BillingKindRefund, AmountCents: -1822},
						},
					}, nil)
			},
			expectStatus: http.StatusOK,
			expectCount:  1,
		},
		{
			name: "service error",
			req:  &entity.DescribeBillingRecordsRequest{},
			mockSetup: func(m *MockBillingService) {
				m.On("DescribeRecords", mock.Anything, testTenant, mock.AnythingOfType("*entity.DescribeBillingRecordsRequest")).
					Return(nil, assert.AnError)
			},
			expectStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mockService := new(MockBillingService)
			tc.mockSetup(mockService)

			router := newBillingRouter(mockService)
			w := postJSON(router, "/api/billing/describe-records", tc.req)

			assert.Equal(t, tc.expectStatus, w.Code)
			if tc.expectStatus == http.StatusOK {
				var resp entity.DescribeBillingRecordsResponse
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Len(t, resp.Records, tc.expectCount)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestBilling_Statistics(t *testing.T) {
	t.Parallel()

	mockService := new(MockBillingService)
	mockService.On("Statistics", mock.Anything, testTenant).
		Return(&entity.BillingStatistics{
			TenantID:         testTenant,
			TotalCents:       4144,
			CreationFeeCents: 3644,
			UsageCents:       500,
			RecordCount:      2,
		}, nil)

	router := newBillingRouter(mockService)
	w := postJSON(router, "/api/billing/statistics", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp entity.BillingStatisticsResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(4144), resp.Statistics.TotalCents)
	mockService.AssertExpectations(t)
}
