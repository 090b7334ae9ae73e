// Package notifier delivers newly raised compliance alerts to downstream sinks.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/pkg/logger"
)

// Notifier is one alert sink. NotifyCritical carries operational failures that need a human.
type Notifier interface {
	Name() string
	NotifyAlert(ctx context.Context, alert dto.CreatedAlert) error
	NotifyCritical(ctx context.Context, kind, message, data string) error
	Close() error
}

type multiNotifier struct {
	sinks  []Notifier
	logger *logger.Logger
}

// NewMulti fans every notification out to all sinks. A failing sink does not stop the others.
func NewMulti(log *logger.Logger, sinks ...Notifier) Notifier {
	return &multiNotifier{sinks: sinks, logger: log}
}

func (m *multiNotifier) Name() string {
	return "multi"
}

func (m *multiNotifier) NotifyAlert(ctx context.Context, alert dto.CreatedAlert) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.NotifyAlert(ctx, alert); err != nil {
			m.logger.WarnContext(ctx, "Alert notification failed",
				logger.StringField("sink", s.Name()),
				logger.Field("alert_id", alert.Alert.ID),
				logger.ErrorField(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *multiNotifier) NotifyCritical(ctx context.Context, kind, message, data string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.NotifyCritical(ctx, kind, message, data); err != nil {
			m.logger.WarnContext(ctx, "Critical notification failed",
				logger.StringField("sink", s.Name()), logger.ErrorField(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *multiNotifier) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
