package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stock-service/internal/models"
	"stock-service/internal/util"

	"go.uber.org/zap"
)

// InventoryStore is the durable store contract the consumer drives. Writes
// are version-checked; IsLineProcessed and ApplyDecrement share one ledger
// so a committed decrement and its ledger entry are inseparable.
type InventoryStore interface {
	GetVariant(ctx context.Context, variantID string) (*models.InventoryItem, error)
	ApplyDecrement(ctx context.Context, item *models.InventoryItem, rec *models.ProcessedEventRecord) error
	ApplyAddStock(ctx context.Context, item *models.InventoryItem) error
	IsLineProcessed(ctx context.Context, orderID, variantID string) (bool, error)
}

// DedupCache is an advisory fast path in front of the durable ledger. A miss
// means nothing; a hit saves a database round trip on redelivery.
type DedupCache interface {
	IsLineProcessed(ctx context.Context, orderID, variantID string) (bool, error)
	MarkLineProcessed(ctx context.Context, orderID, variantID string) error
	MirrorQuantity(ctx context.Context, variantID string, quantity int) error
	GetMirroredQuantity(ctx context.Context, variantID string) (int, bool, error)
}

// DeadLetterer publishes event lines that reached a terminal failure the
// pipeline cannot resolve on its own
type DeadLetterer interface {
	PublishDeadLetter(ctx context.Context, rec *models.DeadLetterRecord) error
}

// errLineAlreadyApplied signals mid-attempt that another consumer committed
// this line first; the outcome is a successful skip.
var errLineAlreadyApplied = errors.New("line already applied")

// StockService is the idempotent consumer: it applies OrderCreated events to
// variant stock with exactly-once effect under at-least-once delivery.
type StockService struct {
	store      InventoryStore
	cache      DedupCache
	deadLetter DeadLetterer
	retryer    *Retryer
	logger     *zap.Logger
}

// NewStockService creates a new stock consumer service. cache may be nil.
func NewStockService(store InventoryStore, cache DedupCache, deadLetter DeadLetterer, retryer *Retryer) *StockService {
	return &StockService{
		store:      store,
		cache:      cache,
		deadLetter: deadLetter,
		retryer:    retryer,
		logger:     util.GetLogger(),
	}
}

// HandleOrderCreated processes one event. Lines run concurrently and
// independently; one line's failure never aborts a sibling. A nil return
// means every line reached a terminal outcome (applied, skipped, or
// dead-lettered) and the message may be acknowledged. A non-nil return means
// at least one line hit an infrastructure error and the message must be
// redelivered, which the ledger makes safe.
func (s *StockService) HandleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	ctx, span := util.StartSpan(ctx, "StockService.HandleOrderCreated")
	defer span.End()

	util.EventsConsumedTotal.Inc()
	s.logger.Info("Processing order event",
		zap.String("event_id", event.EventID),
		zap.String("order_id", event.OrderID),
		zap.Int("lines", len(event.Lines)))

	lineErrs := make([]error, len(event.Lines))
	var wg sync.WaitGroup
	for i, line := range event.Lines {
		wg.Add(1)
		go func(i int, line models.EventLineData) {
			defer wg.Done()
			lineErrs[i] = s.processLine(ctx, event.OrderID, line)
		}(i, line)
	}
	wg.Wait()

	for i, err := range lineErrs {
		if err != nil {
			return fmt.Errorf("line %d (variant %s): %w", i, event.Lines[i].VariantID, err)
		}
	}
	return nil
}

// processLine drives one (variant, quantity) tuple to a terminal outcome.
// Returns nil for every terminal outcome; returns an error only for
// infrastructure failures that warrant redelivering the whole message.
func (s *StockService) processLine(ctx context.Context, orderID string, line models.EventLineData) error {
	start := time.Now()
	defer func() {
		util.DecrementLatency.Observe(time.Since(start).Seconds())
	}()

	if s.cache != nil {
		hit, err := s.cache.IsLineProcessed(ctx, orderID, line.VariantID)
		if err != nil {
			s.logger.Warn("Dedup cache check failed, falling through to ledger",
				zap.String("order_id", orderID), zap.Error(err))
		} else if hit {
			util.DuplicateLinesSkippedTotal.Inc()
			s.logger.Info("Skipping already-applied line (cache)",
				zap.String("order_id", orderID),
				zap.String("variant_id", line.VariantID))
			return nil
		}
	}

	processed, err := s.store.IsLineProcessed(ctx, orderID, line.VariantID)
	if err != nil {
		return fmt.Errorf("failed to check ledger: %w", err)
	}
	if processed {
		util.DuplicateLinesSkippedTotal.Inc()
		s.markProcessedCache(ctx, orderID, line.VariantID)
		s.logger.Info("Skipping already-applied line",
			zap.String("order_id", orderID),
			zap.String("variant_id", line.VariantID))
		return nil
	}

	var finalQuantity int
	attemptErr := s.retryer.Do(ctx, func(ctx context.Context) error {
		// fresh read every attempt; the read's version guards the write
		item, err := s.store.GetVariant(ctx, line.VariantID)
		if err != nil {
			return err
		}

		// a racing consumer may have committed between our ledger check and
		// here; its commit advanced the version, so either this re-check or
		// the CAS below catches it, never a double decrement
		processed, err := s.store.IsLineProcessed(ctx, orderID, line.VariantID)
		if err != nil {
			return fmt.Errorf("failed to re-check ledger: %w", err)
		}
		if processed {
			return errLineAlreadyApplied
		}

		if err := item.DecreaseQuantity(line.Quantity); err != nil {
			return err
		}

		rec := &models.ProcessedEventRecord{
			OrderID:   orderID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		}
		if err := s.store.ApplyDecrement(ctx, item, rec); err != nil {
			if errors.Is(err, models.ErrConcurrencyConflict) {
				util.ConcurrencyConflictsTotal.Inc()
			}
			return err
		}

		finalQuantity = item.Quantity
		return nil
	})

	switch {
	case attemptErr == nil:
		util.StockDecrementsTotal.Inc()
		s.markProcessedCache(ctx, orderID, line.VariantID)
		s.mirrorQuantity(ctx, line.VariantID, finalQuantity)
		s.logger.Info("Stock decremented",
			zap.String("order_id", orderID),
			zap.String("variant_id", line.VariantID),
			zap.Int("quantity", line.Quantity),
			zap.Int("remaining", finalQuantity))
		return nil

	case errors.Is(attemptErr, errLineAlreadyApplied):
		util.DuplicateLinesSkippedTotal.Inc()
		s.markProcessedCache(ctx, orderID, line.VariantID)
		return nil

	case errors.Is(attemptErr, models.ErrVariantNotFound):
		util.VariantNotFoundTotal.Inc()
		s.logger.Error("Event references unknown variant",
			zap.String("order_id", orderID),
			zap.String("variant_id", line.VariantID))
		s.publishDeadLetter(ctx, orderID, line, models.DeadLetterReasonVariantNotFound, attemptErr)
		return nil

	case errors.Is(attemptErr, models.ErrInsufficientStock):
		// business failure: never retried, never marked processed, so a
		// replenishment followed by redelivery can still succeed
		util.InsufficientStockTotal.Inc()
		s.logger.Warn("Stock decrement rejected",
			zap.String("order_id", orderID),
			zap.String("variant_id", line.VariantID),
			zap.Int("quantity", line.Quantity),
			zap.Error(attemptErr))
		s.publishDeadLetter(ctx, orderID, line, models.DeadLetterReasonInsufficientStock, attemptErr)
		return nil

	case errors.Is(attemptErr, models.ErrInvalidAmount):
		// malformed line on the wire; deterministic, nothing to retry
		s.logger.Error("Event line carries invalid quantity",
			zap.String("order_id", orderID),
			zap.String("variant_id", line.VariantID),
			zap.Int("quantity", line.Quantity))
		s.publishDeadLetter(ctx, orderID, line, models.DeadLetterReasonInvalidAmount, attemptErr)
		return nil

	case errors.Is(attemptErr, models.ErrRetryExhausted):
		util.RetryExhaustedTotal.Inc()
		s.logger.Error("Conflict retries exhausted",
			zap.String("order_id", orderID),
			zap.String("variant_id", line.VariantID),
			zap.Error(attemptErr))
		s.publishDeadLetter(ctx, orderID, line, models.DeadLetterReasonRetryExhausted, attemptErr)
		return nil

	default:
		return attemptErr
	}
}

// AddStock replenishes a variant under the same version-checked write the
// consumer uses
func (s *StockService) AddStock(ctx context.Context, variantID string, amount int) (*models.InventoryItem, error) {
	ctx, span := util.StartSpan(ctx, "StockService.AddStock")
	defer span.End()

	var result *models.InventoryItem
	err := s.retryer.Do(ctx, func(ctx context.Context) error {
		item, err := s.store.GetVariant(ctx, variantID)
		if err != nil {
			return err
		}
		if err := item.AddStock(amount); err != nil {
			return err
		}
		if err := s.store.ApplyAddStock(ctx, item); err != nil {
			if errors.Is(err, models.ErrConcurrencyConflict) {
				util.ConcurrencyConflictsTotal.Inc()
			}
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mirrorQuantity(ctx, variantID, result.Quantity)
	s.logger.Info("Stock replenished",
		zap.String("variant_id", variantID),
		zap.Int("amount", amount),
		zap.Int("quantity", result.Quantity))
	return result, nil
}

// GetVariantStock serves the read API, preferring the redis mirror
func (s *StockService) GetVariantStock(ctx context.Context, variantID string) (*models.InventoryItem, error) {
	item, err := s.store.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if qty, ok, cerr := s.cache.GetMirroredQuantity(ctx, variantID); cerr == nil && ok {
			item.Quantity = qty
		}
	}
	return item, nil
}

func (s *StockService) markProcessedCache(ctx context.Context, orderID, variantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.MarkLineProcessed(ctx, orderID, variantID); err != nil {
		s.logger.Warn("Failed to set dedup marker",
			zap.String("order_id", orderID),
			zap.String("variant_id", variantID),
			zap.Error(err))
	}
}

func (s *StockService) mirrorQuantity(ctx context.Context, variantID string, quantity int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.MirrorQuantity(ctx, variantID, quantity); err != nil {
		s.logger.Warn("Failed to mirror quantity",
			zap.String("variant_id", variantID),
			zap.Error(err))
	}
}

func (s *StockService) publishDeadLetter(ctx context.Context, orderID string, line models.EventLineData, reason string, cause error) {
	util.DeadLettersTotal.WithLabelValues(reason).Inc()

	if s.deadLetter == nil {
		return
	}
	rec := &models.DeadLetterRecord{
		OrderID:   orderID,
		VariantID: line.VariantID,
		Quantity:  line.Quantity,
		Reason:    reason,
		Detail:    cause.Error(),
		Timestamp: time.Now().UTC(),
	}
	if err := s.deadLetter.PublishDeadLetter(ctx, rec); err != nil {
		s.logger.Error("Failed to publish dead letter",
			zap.String("order_id", orderID),
			zap.String("variant_id", line.VariantID),
			zap.Error(err))
	}
}
