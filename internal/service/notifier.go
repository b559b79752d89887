package service

import (
	"context"
	"errors"

	"github.com/dukerupert/skein/internal/domain"
)

// Notifier is told about committed order changes. Calls happen after the
// transaction commits; an error never undoes the change.
type Notifier interface {
	OrderPlaced(ctx context.Context, order domain.Order) error
	OrderStatusChanged(ctx context.Context, order domain.Order, from domain.OrderStatus) error
}

// StockEvents is told about committed manual stock adjustments.
type StockEvents interface {
	StockAdjusted(ctx context.Context, level domain.StockLevel, op domain.AdjustOp) error
}

// Notifiers fans a notification out to every member and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) OrderPlaced(ctx context.Context, order domain.Order) error {
	var errs []error
	for _, n := range ns {
		if err := n.OrderPlaced(ctx, order); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ns Notifiers) OrderStatusChanged(ctx context.Context, order domain.Order, from domain.OrderStatus) error {
	var errs []error
	for _, n := range ns {
		if err := n.OrderStatusChanged(ctx, order, from); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) OrderPlaced(context.Context, domain.Order) error { return nil }

func (NopNotifier) OrderStatusChanged(context.Context, domain.Order, domain.OrderStatus) error {
	return nil
}

func (NopNotifier) StockAdjusted(context.Context, domain.StockLevel, domain.AdjustOp) error {
	return nil
}

var (
	_ Notifier    = Notifiers(nil)
	_ Notifier    = NopNotifier{}
	_ StockEvents = NopNotifier{}
)
