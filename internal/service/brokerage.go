package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stocksignal/internal/brokerage"
)

// Brokerage builds a gateway client from the stored config on every call,
// so config updates apply without restarting.
type Brokerage struct {
	settings *Settings
	timeout  time.Duration
	logger   *zap.Logger
}

func NewBrokerage(settings *Settings, timeout time.Duration, logger *zap.Logger) *Brokerage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Brokerage{settings: settings, timeout: timeout, logger: logger}
}

func (s *Brokerage) client(ctx context.Context) (*brokerage.Client, error) {
	cfg, err := s.settings.BrokerageConfig(ctx)
	if err != nil {
		return nil, err
	}
	return brokerage.NewClient(cfg, s.timeout), nil
}

// Connect verifies the gateway is reachable and the API password valid.
func (s *Brokerage) Connect(ctx context.Context) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	_, err = client.Connect(ctx)
	return err
}

func (s *Brokerage) Balance(ctx context.Context) (*brokerage.Balance, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Balance(ctx)
}

func (s *Brokerage) Positions(ctx context.Context) ([]brokerage.Position, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Positions(ctx)
}

func (s *Brokerage) SendOrder(ctx context.Context, req brokerage.OrderRequest) (*brokerage.OrderResult, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.SendOrder(ctx, req)
}

func (s *Brokerage) CancelOrder(ctx context.Context, orderID string) (*brokerage.OrderResult, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.CancelOrder(ctx, orderID)
}
