package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/cardcaptor/almanac-service/internal/core/domain/almanac"
	"github.com/cardcaptor/almanac-service/internal/core/ports"
)

type AlmanacService struct {
	client ports.AlmanacClient
	repo   ports.AlmanacRepository
	logger *logrus.Logger
}

func NewAlmanacService(client ports.AlmanacClient, repo ports.AlmanacRepository, logger *logrus.Logger) ports.AlmanacService {
	return &AlmanacService{
		client: client,
		repo:   repo,
		logger: logger,
	}
}

// GetAlmanacInfo returns the combined day+hour payload for the date.
// With forceRefresh it skips all cache reads and refetches both
// dimensions; otherwise it serves from the cache and refills only the
// missing dimensions. Callers get either a complete pair or an error.
func (s *AlmanacService) GetAlmanacInfo(ctx context.Context, date almanac.Date, forceRefresh bool) (*almanac.Info, error) {
	key := date.String()

	if forceRefresh {
		return s.refreshBoth(ctx, date, key)
	}

	dayInfo, err := s.repo.GetDay(ctx, key)
	if err != nil && !errors.Is(err, almanac.ErrNotFound) {
		return nil, s.fail(key, forceRefresh, err)
	}
	hourInfo, err := s.repo.GetHour(ctx, key)
	if err != nil && !errors.Is(err, almanac.ErrNotFound) {
		return nil, s.fail(key, forceRefresh, err)
	}

	if dayInfo != nil && hourInfo != nil {
		cacheLookups.WithLabelValues("day", "hit").Inc()
		cacheLookups.WithLabelValues("hour", "hit").Inc()
		if s.logger != nil {
			s.logger.WithField("date", key).Info("almanac served from cache")
		}
		return &almanac.Info{Date: key, DayInfo: dayInfo, HourInfo: hourInfo}, nil
	}

	// Each missing dimension is fetched and written independently; a
	// present dimension is reused as-is even if the other one is being
	// refreshed in the same call.
	if dayInfo == nil {
		cacheLookups.WithLabelValues("day", "miss").Inc()
		dayInfo, err = s.fetchDay(ctx, date, key)
		if err != nil {
			return nil, s.fail(key, forceRefresh, err)
		}
	} else {
		cacheLookups.WithLabelValues("day", "hit").Inc()
	}

	if hourInfo == nil {
		cacheLookups.WithLabelValues("hour", "miss").Inc()
		hourInfo, err = s.fetchHour(ctx, date, key)
		if err != nil {
			return nil, s.fail(key, forceRefresh, err)
		}
	} else {
		cacheLookups.WithLabelValues("hour", "hit").Inc()
	}

	return &almanac.Info{Date: key, DayInfo: dayInfo, HourInfo: hourInfo}, nil
}

// refreshBoth is the force-refresh path: both dimensions are fetched
// and written unconditionally, day first. A failure on either
// dimension aborts the call; an already-committed day write stays
// committed, there is no cross-dimension transaction.
func (s *AlmanacService) refreshBoth(ctx context.Context, date almanac.Date, key string) (*almanac.Info, error) {
	if s.logger != nil {
		s.logger.WithField("date", key).Info("force refresh, bypassing almanac cache")
	}
	cacheLookups.WithLabelValues("day", "bypass").Inc()
	cacheLookups.WithLabelValues("hour", "bypass").Inc()

	dayInfo, err := s.fetchDay(ctx, date, key)
	if err != nil {
		return nil, s.fail(key, true, err)
	}
	hourInfo, err := s.fetchHour(ctx, date, key)
	if err != nil {
		return nil, s.fail(key, true, err)
	}

	return &almanac.Info{Date: key, DayInfo: dayInfo, HourInfo: hourInfo}, nil
}

func (s *AlmanacService) fetchDay(ctx context.Context, date almanac.Date, key string) (almanac.DayRecord, error) {
	record, err := s.client.FetchDay(ctx, date)
	if err != nil {
		upstreamFetches.WithLabelValues("day", "error").Inc()
		return nil, err
	}
	upstreamFetches.WithLabelValues("day", "ok").Inc()
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"date": key, "dimension": almanac.DimensionDay}).Info("fetched almanac record from upstream")
	}
	if err := s.repo.PutDay(ctx, key, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *AlmanacService) fetchHour(ctx context.Context, date almanac.Date, key string) (almanac.HourRecord, error) {
	record, err := s.client.FetchHour(ctx, date)
	if err != nil {
		upstreamFetches.WithLabelValues("hour", "error").Inc()
		return nil, err
	}
	upstreamFetches.WithLabelValues("hour", "ok").Inc()
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"date": key, "dimension": almanac.DimensionHour}).Info("fetched almanac record from upstream")
	}
	if err := s.repo.PutHour(ctx, key, record); err != nil {
		return nil, err
	}
	return record, nil
}

// fail logs the underlying failure with its context and wraps it so
// callers see a single retrieval error type with the cause attached.
func (s *AlmanacService) fail(key string, forceRefresh bool, err error) error {
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"date":          key,
			"force_refresh": forceRefresh,
		}).WithError(err).Error("almanac retrieval failed")
	}
	return &almanac.RetrievalError{Date: key, Err: err}
}
