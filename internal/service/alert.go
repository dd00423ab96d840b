package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stocksignal/internal/apperr"
	"stocksignal/internal/models"
	"stocksignal/internal/repository"
)

// AlertInput creates one alert. ConditionValue is required for price alerts
// and ignored for signal_change.
type AlertInput struct {
	Code           string   `json:"code"`
	AlertType      string   `json:"alertType"`
	ConditionValue *float64 `json:"conditionValue"`
}

// Alerts owns alert CRUD and the post-refresh trigger sweep.
type Alerts struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewAlerts(repo repository.Repository, logger *zap.Logger) *Alerts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerts{repo: repo, logger: logger}
}

func (s *Alerts) Create(ctx context.Context, in AlertInput) (*models.Alert, error) {
	if !codePattern.MatchString(in.Code) {
		return nil, apperr.Validation("code", "must be 1 to 10 alphanumeric characters")
	}
	switch in.AlertType {
	case models.AlertTypePriceAbove, models.AlertTypePriceBelow:
		if in.ConditionValue == nil || *in.ConditionValue <= 0 {
			return nil, apperr.Validation("conditionValue", "must be a positive price")
		}
	case models.AlertTypeSignalChange:
		in.ConditionValue = nil
	default:
		return nil, apperr.Validation("alertType", "must be price_above, price_below or signal_change")
	}
	alert := &models.Alert{
		Code:           in.Code,
		AlertType:      in.AlertType,
		ConditionValue: in.ConditionValue,
		IsActive:       true,
	}
	if err := s.repo.InsertAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *Alerts) Delete(ctx context.Context, id uint64) error {
	existing, err := s.repo.GetAlertByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.Validation("id", "alert not found")
	}
	return s.repo.DeleteAlert(ctx, id)
}

func (s *Alerts) List(ctx context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	return s.repo.ListAlerts(ctx, params)
}

func (s *Alerts) History(ctx context.Context, params repository.ListAlertHistoryParams) ([]models.AlertHistory, error) {
	return s.repo.ListAlertHistory(ctx, params)
}

func (s *Alerts) MarkRead(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.repo.MarkAlertHistoryRead(ctx, ids)
}

func (s *Alerts) UnreadCount(ctx context.Context) (int64, error) {
	return s.repo.CountUnreadAlertHistory(ctx)
}

// Check sweeps every active alert against the latest stored data. Price
// alerts deactivate after their first trigger; signal_change alerts stay
// active but never record the same transition twice in a row.
func (s *Alerts) Check(ctx context.Context) error {
	active := true
	alerts, err := s.repo.ListAlerts(ctx, repository.ListAlertsParams{Active: &active})
	if err != nil {
		return err
	}
	for _, alert := range alerts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.check(ctx, alert); err != nil {
			s.logger.Warn("alert check failed", zap.Uint64("alert_id", alert.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Alerts) check(ctx context.Context, alert models.Alert) error {
	bar, err := s.repo.GetLatestPriceBar(ctx, alert.Code)
	if err != nil || bar == nil {
		return err
	}
	current := bar.Close

	history := &models.AlertHistory{
		AlertID:        alert.ID,
		Code:           alert.Code,
		AlertType:      alert.AlertType,
		PriceAtTrigger: &current,
	}

	switch alert.AlertType {
	case models.AlertTypePriceAbove:
		if alert.ConditionValue == nil || current < *alert.ConditionValue {
			return nil
		}
		history.Message = fmt.Sprintf("%s rose to %.0f, at or above %.0f", alert.Code, current, *alert.ConditionValue)
	case models.AlertTypePriceBelow:
		if alert.ConditionValue == nil || current > *alert.ConditionValue {
			return nil
		}
		history.Message = fmt.Sprintf("%s fell to %.0f, at or below %.0f", alert.Code, current, *alert.ConditionValue)
	case models.AlertTypeSignalChange:
		before, after, changed, err := s.signalChange(ctx, alert.Code)
		if err != nil || !changed {
			return err
		}
		last, err := s.repo.GetLatestAlertHistory(ctx, alert.ID)
		if err != nil {
			return err
		}
		if last != nil && last.SignalBefore == before && last.SignalAfter == after {
			return nil
		}
		history.SignalBefore = before
		history.SignalAfter = after
		history.Message = fmt.Sprintf("%s signal changed from %s to %s", alert.Code, before, after)
	default:
		return nil
	}

	if err := s.repo.InsertAlertHistory(ctx, history); err != nil {
		return err
	}
	if alert.AlertType == models.AlertTypePriceAbove || alert.AlertType == models.AlertTypePriceBelow {
		return s.repo.SetAlertActive(ctx, alert.ID, false)
	}
	return nil
}

// signalChange reports the two most recent signal directions for a code.
func (s *Alerts) signalChange(ctx context.Context, code string) (before, after string, changed bool, err error) {
	desc := false
	records, err := s.repo.ListSignalRecords(ctx, repository.ListSignalRecordsParams{
		Code:    &code,
		Limit:   2,
		OrderBy: "date",
		Asc:     &desc,
	})
	if err != nil || len(records) < 2 {
		return "", "", false, err
	}
	after, before = records[0].SignalType, records[1].SignalType
	if before == after {
		return "", "", false, nil
	}
	return before, after, true, nil
}
