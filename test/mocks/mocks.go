package mocks

import (
	"context"

	"github.com/cardcaptor/almanac-service/internal/core/domain/almanac"
)

// EndpointResolverMock is a lightweight mock for EndpointResolver
type EndpointResolverMock struct {
	ResolveFn func(ctx context.Context) (string, error)
	EnsureFn  func(ctx context.Context) (string, error)
}

func (m *EndpointResolverMock) Resolve(ctx context.Context) (string, error) {
	if m.ResolveFn != nil {
		return m.ResolveFn(ctx)
	}
	return "127.0.0.1:80", nil
}

func (m *EndpointResolverMock) Ensure(ctx context.Context) (string, error) {
	if m.EnsureFn != nil {
		return m.EnsureFn(ctx)
	}
	return "127.0.0.1:80", nil
}

// AlmanacClientMock is a lightweight mock for AlmanacClient
type AlmanacClientMock struct {
	FetchDayFn  func(ctx context.Context, date almanac.Date) (almanac.DayRecord, error)
	FetchHourFn func(ctx context.Context, date almanac.Date) (almanac.HourRecord, error)
}

func (m *AlmanacClientMock) FetchDay(ctx context.Context, date almanac.Date) (almanac.DayRecord, error) {
	if m.FetchDayFn != nil {
		return m.FetchDayFn(ctx, date)
	}
	return almanac.DayRecord{"code": float64(200)}, nil
}

func (m *AlmanacClientMock) FetchHour(ctx context.Context, date almanac.Date) (almanac.HourRecord, error) {
	if m.FetchHourFn != nil {
		return m.FetchHourFn(ctx, date)
	}
	return almanac.HourRecord{"code": float64(200)}, nil
}

// AlmanacRepositoryMock is a lightweight mock for AlmanacRepository
type AlmanacRepositoryMock struct {
	GetDayFn  func(ctx context.Context, date string) (almanac.DayRecord, error)
	PutDayFn  func(ctx context.Context, date string, record almanac.DayRecord) error
	GetHourFn func(ctx context.Context, date string) (almanac.HourRecord, error)
	PutHourFn func(ctx context.Context, date string, record almanac.HourRecord) error
}

func (m *AlmanacRepositoryMock) GetDay(ctx context.Context, date string) (almanac.DayRecord, error) {
	if m.GetDayFn != nil {
		return m.GetDayFn(ctx, date)
	}
	return nil, almanac.ErrNotFound
}

func (m *AlmanacRepositoryMock) PutDay(ctx context.Context, date string, record almanac.DayRecord) error {
	if m.PutDayFn != nil {
		return m.PutDayFn(ctx, date, record)
	}
	return nil
}

func (m *AlmanacRepositoryMock) GetHour(ctx context.Context, date string) (almanac.HourRecord, error) {
	if m.GetHourFn != nil {
		return m.GetHourFn(ctx, date)
	}
	return nil, almanac.ErrNotFound
}

func (m *AlmanacRepositoryMock) PutHour(ctx context.Context, date string, record almanac.HourRecord) error {
	if m.PutHourFn != nil {
		return m.PutHourFn(ctx, date, record)
	}
	return nil
}

// AlmanacServiceMock is a lightweight mock for AlmanacService
type AlmanacServiceMock struct {
	GetAlmanacInfoFn func(ctx context.Context, date almanac.Date, forceRefresh bool) (*almanac.Info, error)
}

func (m *AlmanacServiceMock) GetAlmanacInfo(ctx context.Context, date almanac.Date, forceRefresh bool) (*almanac.Info, error) {
	if m.GetAlmanacInfoFn != nil {
		return m.GetAlmanacInfoFn(ctx, date, forceRefresh)
	}
	return &almanac.Info{Date: date.String(), DayInfo: almanac.DayRecord{}, HourInfo: almanac.HourRecord{}}, nil
}
