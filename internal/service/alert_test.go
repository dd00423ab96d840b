package service

import (
	"context"
	"testing"
	"time"

	"stocksignal/internal/models"
	"stocksignal/internal/repository"
)

type alertRepo struct {
	repository.Repository
	alerts  []models.Alert
	bars    map[string]*models.PriceBar
	signals map[string][]models.SignalRecord

	history     []models.AlertHistory
	deactivated []uint64
}

func (r *alertRepo) ListAlerts(_ context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	out := []models.Alert{}
	for _, a := range r.alerts {
		if params.Active != nil && a.IsActive != *params.Active {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *alertRepo) GetLatestPriceBar(_ context.Context, code string) (*models.PriceBar, error) {
	return r.bars[code], nil
}

func (r *alertRepo) ListSignalRecords(_ context.Context, params repository.ListSignalRecordsParams) ([]models.SignalRecord, error) {
	if params.Code == nil {
		return nil, nil
	}
	records := r.signals[*params.Code]
	if params.Limit > 0 && len(records) > params.Limit {
		records = records[:params.Limit]
	}
	return records, nil
}

func (r *alertRepo) GetLatestAlertHistory(_ context.Context, alertID uint64) (*models.AlertHistory, error) {
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].AlertID == alertID {
			h := r.history[i]
			return &h, nil
		}
	}
	return nil, nil
}

func (r *alertRepo) InsertAlertHistory(_ context.Context, item *models.AlertHistory) error {
	item.ID = uint64(len(r.history) + 1)
	r.history = append(r.history, *item)
	return nil
}

func (r *alertRepo) SetAlertActive(_ context.Context, id uint64, active bool) error {
	if !active {
		r.deactivated = append(r.deactivated, id)
	}
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			r.alerts[i].IsActive = active
		}
	}
	return nil
}

func price(v float64) *float64 { return &v }

func TestCheckPriceAboveTriggersOnceAndDeactivates(t *testing.T) {
	repo := &alertRepo{
		alerts: []models.Alert{{ID: 1, Code: "7203", AlertType: models.AlertTypePriceAbove, ConditionValue: price(2500), IsActive: true}},
		bars:   map[string]*models.PriceBar{"7203": {Code: "7203", Close: 2600}},
	}
	svc := NewAlerts(repo, nil)

	if err := svc.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(repo.history) != 1 {
		t.Fatalf("history = %d, want 1", len(repo.history))
	}
	h := repo.history[0]
	if h.AlertID != 1 || h.PriceAtTrigger == nil || *h.PriceAtTrigger != 2600 {
		t.Fatalf("history entry = %+v", h)
	}
	if len(repo.deactivated) != 1 || repo.deactivated[0] != 1 {
		t.Fatalf("price alert not deactivated after trigger")
	}

	// second sweep: the alert is inactive, nothing new fires
	if err := svc.Check(context.Background()); err != nil {
		t.Fatalf("second check: %v", err)
	}
	if len(repo.history) != 1 {
		t.Fatalf("inactive alert fired again")
	}
}

func TestCheckPriceBelowNotTriggeredAboveThreshold(t *testing.T) {
	repo := &alertRepo{
		alerts: []models.Alert{{ID: 1, Code: "7203", AlertType: models.AlertTypePriceBelow, ConditionValue: price(2000), IsActive: true}},
		bars:   map[string]*models.PriceBar{"7203": {Code: "7203", Close: 2100}},
	}
	svc := NewAlerts(repo, nil)
	if err := svc.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(repo.history) != 0 {
		t.Fatalf("alert fired at %v above threshold", repo.history)
	}
}

func TestCheckSignalChangeDedupes(t *testing.T) {
	d1 := time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)
	repo := &alertRepo{
		alerts: []models.Alert{{ID: 1, Code: "7203", AlertType: models.AlertTypeSignalChange, IsActive: true}},
		bars:   map[string]*models.PriceBar{"7203": {Code: "7203", Close: 2100}},
		signals: map[string][]models.SignalRecord{
			// newest first, as the store returns them
			"7203": {
				{Code: "7203", Date: d2, SignalType: models.SignalBuy},
				{Code: "7203", Date: d1, SignalType: models.SignalHold},
			},
		},
	}
	svc := NewAlerts(repo, nil)

	if err := svc.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(repo.history) != 1 {
		t.Fatalf("history = %d, want 1", len(repo.history))
	}
	if repo.history[0].SignalBefore != models.SignalHold || repo.history[0].SignalAfter != models.SignalBuy {
		t.Fatalf("transition = %s -> %s", repo.history[0].SignalBefore, repo.history[0].SignalAfter)
	}
	if len(repo.deactivated) != 0 {
		t.Fatalf("signal_change alert must stay active")
	}

	// same transition on the next sweep is not recorded twice
	if err := svc.Check(context.Background()); err != nil {
		t.Fatalf("second check: %v", err)
	}
	if len(repo.history) != 1 {
		t.Fatalf("duplicate transition recorded")
	}
}

func TestCreateAlertValidation(t *testing.T) {
	repo := &alertRepo{}
	svc := NewAlerts(repo, nil)

	if _, err := svc.Create(context.Background(), AlertInput{Code: "7203", AlertType: "price_above"}); err == nil {
		t.Fatalf("price alert without condition accepted")
	}
	if _, err := svc.Create(context.Background(), AlertInput{Code: "7203", AlertType: "bogus"}); err == nil {
		t.Fatalf("unknown alert type accepted")
	}
}
