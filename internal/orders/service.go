package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rxexchange-backend/internal/supply"
	"github.com/angelmondragon/rxexchange-backend/pkg/config"
	dbpkg "github.com/angelmondragon/rxexchange-backend/pkg/db"
	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	"github.com/angelmondragon/rxexchange-backend/pkg/outbox"
	"github.com/angelmondragon/rxexchange-backend/pkg/pagination"
)

// Service runs the order lifecycle. Every quantity-affecting transition goes
// through the supply ledger inside the same transaction as the status change.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Confirm(ctx context.Context, input TransitionInput) (*models.Order, error)
	Reject(ctx context.Context, input TransitionInput) (*models.Order, error)
	CancelByBuyer(ctx context.Context, input TransitionInput) (*models.Order, error)
	CancelBySupplier(ctx context.Context, input TransitionInput) (*models.Order, error)
	Ship(ctx context.Context, input ShipInput) (*models.Order, error)
	UpdateTransportStatus(ctx context.Context, input TransportInput) (*models.Order, error)
	ConfirmReceipt(ctx context.Context, input TransitionInput) (*models.Order, error)
	Expire(ctx context.Context, input ExpireInput) (bool, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// Policy holds the configurable parts of the lifecycle.
type Policy struct {
	ReceiptFromShipped    bool
	AllowSupplierCancel   bool
	ExpiredCancelReason   string
	MaxQuantityPerRequest int
}

// PolicyFromConfig maps the orders config section onto a Policy.
func PolicyFromConfig(cfg config.OrdersConfig) Policy {
	return Policy{
		ReceiptFromShipped:    cfg.ReceiptFromShipped,
		AllowSupplierCancel:   cfg.AllowSupplierCancel,
		ExpiredCancelReason:   cfg.ExpiredCancelReason,
		MaxQuantityPerRequest: cfg.MaxQuantityPerRequest,
	}
}

// ServiceOption customises a service at construction.
type ServiceOption func(*service)

// WithClock overrides the time source used for timestamps and listing expiry.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logg *logger.Logger) ServiceOption {
	return func(s *service) {
		s.logg = logg
	}
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger SupplyLedger
	outbox outboxPublisher
	policy Policy
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the order lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledger SupplyLedger, outbox outboxPublisher, policy Policy, opts ...ServiceOption) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("supply ledger required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	svc := &service{
		repo:   repo,
		tx:     tx,
		ledger: ledger,
		outbox: outbox,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func checkOrderable(listing *models.SupplyListing, buyerTenantID uuid.UUID, quantity int, now time.Time) error {
	if listing.Status != enums.ListingStatusActive || listing.IsExpiredAt(now) {
		return pkgerrors.New(pkgerrors.CodeListingUnavailable, "supply listing is not available")
	}
	if listing.TenantID == buyerTenantID {
		return pkgerrors.New(pkgerrors.CodeSelfDealing, "cannot order from own supply listing")
	}
	if quantity < listing.MinOrderQuantity {
		return pkgerrors.New(pkgerrors.CodeQuantityTooSmall, "quantity below minimum order quantity").
			WithDetails(map[string]any{
				"minOrderQuantity": listing.MinOrderQuantity,
				"requested":        quantity,
			})
	}
	return nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	buyerTenantID, err := requireTenant(input.Actor)
	if err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if s.policy.MaxQuantityPerRequest > 0 && input.Quantity > s.policy.MaxQuantityPerRequest {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds per-order maximum").
			WithDetails(map[string]any{"max": s.policy.MaxQuantityPerRequest})
	}
	if input.SupplyListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supply listing id required")
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listing, err := s.ledger.FindListing(ctx, tx, input.SupplyListingID)
		if err != nil {
			return err
		}

		now := s.now()
		orderID := uuid.New()
		// listing was read without a lock; the guard re-checks it once the
		// ledger holds the row.
		reserved, err := s.ledger.Adjust(ctx, tx, supply.AdjustInput{
			TenantID:    listing.TenantID,
			DrugID:      listing.DrugID,
			ListingID:   &listing.ID,
			Delta:       -input.Quantity,
			Reason:      string(enums.EventOrderCreated),
			OperationID: orderID.String(),
			Guard: func(locked *models.SupplyListing) error {
				return checkOrderable(locked, buyerTenantID, input.Quantity, now)
			},
		})
		if err != nil {
			return err
		}
		listing = reserved

		listingID := reserved.ID
		order := &models.Order{
			ID:               orderID,
			OrderNumber:      newOrderNumber(now),
			BuyerTenantID:    buyerTenantID,
			SupplierTenantID: listing.TenantID,
			Status:           enums.OrderStatusPending,
			Notes:            normalizeNotes(input.Notes),
			CreatedByUserID:  input.Actor.UserID,
			Items: []models.OrderItem{{
				ID:              uuid.New(),
				OrderID:         orderID,
				SupplyListingID: &listingID,
				DrugID:          listing.DrugID,
				Quantity:        input.Quantity,
				UnitPrice:       listing.UnitPrice,
				CreatedAt:       now,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(&input.Actor),
			OccurredAt:    now,
			Data: OrderCreatedEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				BuyerTenantID:    order.BuyerTenantID,
				SupplierTenantID: order.SupplierTenantID,
				SupplyListingID:  listing.ID,
				DrugID:           listing.DrugID,
				Quantity:         input.Quantity,
				Total:            order.Items[0].LineTotal(),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created event")
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, created, "", created.Status)
	return created, nil
}

func (s *service) Confirm(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, transitionRequest{
		orderID: input.OrderID,
		actor:   input.Actor,
		party:   PartySupplier,
		to:      enums.OrderStatusConfirmed,
	})
}

func (s *service) Reject(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, transitionRequest{
		orderID: input.OrderID,
		actor:   input.Actor,
		party:   PartySupplier,
		to:      enums.OrderStatusRejectedBySupplier,
		reason:  input.Reason,
	})
}

func (s *service) CancelByBuyer(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, transitionRequest{
		orderID: input.OrderID,
		actor:   input.Actor,
		party:   PartyBuyer,
		to:      enums.OrderStatusCancelledByPharmacy,
		reason:  input.Reason,
	})
}

func (s *service) CancelBySupplier(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, transitionRequest{
		orderID: input.OrderID,
		actor:   input.Actor,
		party:   PartySupplier,
		to:      enums.OrderStatusCancelledBySupplier,
		reason:  input.Reason,
	})
}

func (s *service) Ship(ctx context.Context, input ShipInput) (*models.Order, error) {
	if input.LogisticsTenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logistics tenant id required")
	}
	tracking := strings.TrimSpace(input.TrackingNumber)
	return s.transition(ctx, transitionRequest{
		orderID: input.OrderID,
		actor:   input.Actor,
		party:   PartySupplier,
		to:      enums.OrderStatusShipped,
		prepare: func(order *models.Order, updates map[string]any) error {
			logisticsID := input.LogisticsTenantID
			order.LogisticsTenantID = &logisticsID
			updates["logistics_tenant_id"] = logisticsID
			if tracking != "" {
				order.TrackingNumber = &tracking
				updates["tracking_number"] = tracking
			}
			return nil
		},
	})
}

func (s *service) UpdateTransportStatus(ctx context.Context, input TransportInput) (*models.Order, error) {
	switch input.Status {
	case enums.OrderStatusShipped, enums.OrderStatusInTransit, enums.OrderStatusDelivered:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transport status must be shipped, in_transit or delivered")
	}
	return s.transition(ctx, transitionRequest{
		orderID: input.OrderID,
		actor:   input.Actor,
		party:   PartyLogistics,
		to:      input.Status,
	})
}

func (s *service) ConfirmReceipt(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, transitionRequest{
		orderID: input.OrderID,
		actor:   input.Actor,
		party:   PartyBuyer,
		to:      enums.OrderStatusDelivered,
	})
}

func (s *service) Expire(ctx context.Context, input ExpireInput) (bool, error) {
	if input.OrderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	now := input.Now
	if now.IsZero() {
		now = s.now()
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = s.policy.ExpiredCancelReason
	}

	var expired *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		if !input.Cutoff.IsZero() && order.CreatedAt.After(input.Cutoff) {
			return nil
		}
		rule, _ := lookupTransition(enums.OrderStatusPending, enums.OrderStatusExpiredCancelled, PartySystem)
		if err := s.apply(ctx, tx, repo, order, rule, nil, reason, map[string]any{}, now); err != nil {
			return err
		}
		expired = order
		return nil
	})
	if err != nil {
		return false, err
	}
	if expired == nil {
		return false, nil
	}
	s.logTransition(ctx, expired, enums.OrderStatusPending, expired.Status)
	return true, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	tenantID, err := requireTenant(actor)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if actor.TenantType == enums.TenantTypeRegulator {
		return order, nil
	}
	if !isParty(order, PartyBuyer, tenantID) && !isParty(order, PartySupplier, tenantID) && !isParty(order, PartyLogistics, tenantID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to tenant")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	tenantID, err := requireTenant(input.Actor)
	if err != nil {
		return nil, err
	}

	filter := tenantListFilter{
		tenantID: tenantID,
		limit:    pagination.LimitWithBuffer(input.Params.Limit),
	}
	role := input.Role
	if input.Actor.TenantType == enums.TenantTypeRegulator {
		// oversight reads are never scoped to the regulator's own tenant
		role = ListRoleRegulator
	}
	switch role {
	case ListRoleRegulator:
		if input.Actor.TenantType != enums.TenantTypeRegulator {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only regulators may list all orders")
		}
	case ListRoleBuyer:
		filter.column = "buyer_tenant_id"
	case ListRoleSupplier:
		filter.column = "supplier_tenant_id"
	case ListRoleLogistics:
		filter.column = "logistics_tenant_id"
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be buyer, supplier, logistics or regulator")
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filter.status = input.Status
	}
	if input.Params.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		filter.cursor = cursor
	}

	rows, err := s.repo.ListForTenant(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page, next := pagination.SplitPage(rows, input.Params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	list := &OrderList{Orders: make([]OrderView, 0, len(page))}
	for i := range page {
		list.Orders = append(list.Orders, NewOrderView(&page[i]))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	rows, err := s.repo.ListExpirable(ctx, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expirable orders")
	}
	return rows, nil
}

type transitionRequest struct {
	orderID uuid.UUID
	actor   Actor
	party   Party
	to      enums.OrderStatus
	reason  string
	prepare func(order *models.Order, updates map[string]any) error
}

// transition checks, in order: tenant present, order exists, actor is the
// required party, and the state table allows the move.
func (s *service) transition(ctx context.Context, req transitionRequest) (*models.Order, error) {
	tenantID, err := requireTenant(req.actor)
	if err != nil {
		return nil, err
	}
	if req.orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		result *models.Order
		from   enums.OrderStatus
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, req.orderID)
		if err != nil {
			return err
		}
		if !isParty(order, req.party, tenantID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("only the %s may perform this action", req.party))
		}
		rule, ok := lookupTransition(order.Status, req.to, req.party)
		if !ok || !s.gateOpen(rule.gate) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "state transition disallowed").
				WithDetails(map[string]any{"from": order.Status, "to": req.to})
		}

		updates := map[string]any{}
		if req.prepare != nil {
			if err := req.prepare(order, updates); err != nil {
				return err
			}
		}
		from = order.Status
		if err := s.apply(ctx, tx, repo, order, rule, &req.actor, req.reason, updates, s.now()); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, result, from, result.Status)
	return result, nil
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, rule transition, actor *Actor, reason string, updates map[string]any, now time.Time) error {
	from := order.Status
	for column, value := range stampTransition(order, rule.to, now) {
		updates[column] = value
	}
	updates["status"] = rule.to
	updates["updated_at"] = now
	reason = strings.TrimSpace(reason)
	if rule.releasesStock && reason != "" {
		order.CancelReason = &reason
		updates["cancel_reason"] = reason
	}

	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	order.Status = rule.to
	order.UpdatedAt = now

	if rule.releasesStock {
		if err := s.releaseStock(ctx, tx, order, rule.to); err != nil {
			return err
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     rule.event,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		OccurredAt:    now,
		Data: OrderStatusChangedEvent{
			OrderID:          order.ID,
			OrderNumber:      order.OrderNumber,
			BuyerTenantID:    order.BuyerTenantID,
			SupplierTenantID: order.SupplierTenantID,
			From:             from,
			To:               rule.to,
			Reason:           reason,
			StockReleased:    rule.releasesStock,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
	}
	return nil
}

// releaseStock returns every item's reserved quantity to the listing it was
// reserved against.
func (s *service) releaseStock(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus) error {
	for _, item := range order.Items {
		if item.Quantity <= 0 {
			continue
		}
		if _, err := s.ledger.Adjust(ctx, tx, supply.AdjustInput{
			TenantID:    order.SupplierTenantID,
			DrugID:      item.DrugID,
			ListingID:   item.SupplyListingID,
			Delta:       item.Quantity,
			Reason:      string(to),
			OperationID: order.ID.String() + ":" + item.ID.String(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) gateOpen(gate policyGate) bool {
	switch gate {
	case gateSupplierCancel:
		return s.policy.AllowSupplierCancel
	case gateReceiptFromShipped:
		return s.policy.ReceiptFromShipped
	default:
		return true
	}
}

func (s *service) logTransition(ctx context.Context, order *models.Order, from, to enums.OrderStatus) {
	if s.logg == nil || order == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"from_status":  string(from),
		"to_status":    string(to),
	})
	s.logg.Info(ctx, "order status changed")
}

func lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.LockByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func requireTenant(actor Actor) (uuid.UUID, error) {
	if actor.TenantID == nil || *actor.TenantID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNoTenant, "user has no tenant")
	}
	return *actor.TenantID, nil
}

func isParty(order *models.Order, party Party, tenantID uuid.UUID) bool {
	switch party {
	case PartyBuyer:
		return order.BuyerTenantID == tenantID
	case PartySupplier:
		return order.SupplierTenantID == tenantID
	case PartyLogistics:
		return order.LogisticsTenantID != nil && *order.LogisticsTenantID == tenantID
	default:
		return false
	}
}

func actorRef(actor *Actor) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID:   actor.UserID,
		TenantID: actor.TenantID,
		Role:     actor.Role,
	}
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// newOrderNumber renders RX-YYYYMMDD-XXXXXXXX with eight random hex digits.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("RX-%s-%s", now.UTC().Format("20060102"), suffix)
}
