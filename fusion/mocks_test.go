package fusion

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockPriceModel struct {
	mock.Mock
}

func (m *MockPriceModel) EstimatePrice(ctx context.Context, features PriceFeatures) (float64, error) {
	args := m.Called(ctx, features)
	return args.Get(0).(float64), args.Error(1)
}

type MockFraudModel struct {
	mock.Mock
}

func (m *MockFraudModel) PredictFraud(ctx context.Context, features FraudFeatures) (FraudPrediction, error) {
	args := m.Called(ctx, features)
	return args.Get(0).(FraudPrediction), args.Error(1)
}

type MockImageSource struct {
	mock.Mock
}

func (m *MockImageSource) DownloadImage(ctx context.Context, url string) ([]byte, string, error) {
	args := m.Called(ctx, url)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}
