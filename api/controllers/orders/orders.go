package orders

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trato-app/trato-backend/api/middleware"
	"github.com/trato-app/trato-backend/api/responses"
	"github.com/trato-app/trato-backend/api/validators"
	internalorders "github.com/trato-app/trato-backend/internal/orders"
	"github.com/trato-app/trato-backend/pkg/db/models"
	"github.com/trato-app/trato-backend/pkg/enums"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
	"github.com/trato-app/trato-backend/pkg/logger"
	"github.com/trato-app/trato-backend/pkg/pagination"
)

type checkoutItemRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=standing daily"`
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type checkoutRequest struct {
	SellerID     string                `json:"seller_id" validate:"required,uuid4"`
	DeliveryType string                `json:"delivery_type" validate:"required"`
	Address      *string               `json:"address,omitempty"`
	Notes        *string               `json:"notes,omitempty"`
	Items        []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

// Checkout places a new order for the authenticated buyer.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := uuid.Parse(payload.SellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
			return
		}
		deliveryType, err := enums.ParseDeliveryType(payload.DeliveryType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid delivery_type %q", payload.DeliveryType)))
			return
		}

		items := make([]internalorders.CheckoutItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			kind, err := enums.ParseProductKind(item.Kind)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid item kind %q", item.Kind)))
				return
			}
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			items = append(items, internalorders.CheckoutItem{
				Kind:      kind,
				ProductID: productID,
				Quantity:  item.Quantity,
			})
		}

		input := internalorders.CheckoutInput{
			Buyer:        actor,
			SellerID:     sellerID,
			DeliveryType: deliveryType,
			Address:      payload.Address,
			Notes:        payload.Notes,
			Items:        items,
		}

		order, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Detail returns one order. The service enforces that the actor participates in it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListMine returns the buyer's own orders, newest first.
func ListMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBuyerOrders(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListSeller returns the seller's incoming orders with an optional status filter.
func ListSeller(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseStatusParam(r.URL.Query().Get("status"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListSellerOrders(r.Context(), actor, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// DriverQueue lists unclaimed delivery orders that are ready for pickup.
func DriverQueue(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.DriverQueue(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Accept moves a pending order to accepted and reserves its stock.
func Accept(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.Accept)
}

func MarkReady(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.MarkReady)
}

func Claim(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.ClaimOrder)
}

func MarkPickedUp(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.MarkPickedUp)
}

func MarkInTransit(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.MarkInTransit)
}

func MarkDelivered(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.MarkDelivered)
}

// Cancel cancels an order and restocks anything it was holding.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.Cancel)
}

func transition(
	svc internalorders.Service,
	logg *logger.Logger,
	fn func(internalorders.Service, context.Context, uuid.UUID, internalorders.Actor) (*models.Order, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := fn(svc, r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	role, err := enums.ParseMemberRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid actor role")
	}
	return internalorders.Actor{UserID: parsed, Role: role}, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func parseStatusParam(raw string) (*enums.OrderStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid status %q", raw))
	}
	return &status, nil
}
