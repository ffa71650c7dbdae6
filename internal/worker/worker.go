package worker

import (
	"context"
	"log"

	"stock-service/internal/broker"
	"stock-service/internal/service"
)

// StockWorker consumes OrderCreated events and drives the idempotent stock
// service. StartConsuming commits a message only after the handler returns
// nil, i.e. after every line reached a terminal outcome; anything earlier
// leaves the message for redelivery, which the ledger makes a no-op.
type StockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewStockWorker creates a new stock worker
func NewStockWorker(consumer *broker.Consumer, stockService *service.StockService) *StockWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCreated(stockService.HandleOrderCreated)

	return &StockWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *StockWorker) Start(ctx context.Context) error {
	log.Println("Starting stock worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockWorker) Stop() error {
	log.Println("Stopping stock worker...")
	return w.consumer.Close()
}
