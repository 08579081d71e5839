package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/services"
)

func TestCheckoutHandlersPaidCartReturnsSession(t *testing.T) {
	router := chi.NewRouter()
	var captured services.CreateCheckoutCommand
	handler := NewCheckoutHandlers(&stubCheckoutService{
		createFunc: func(_ context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutResult, error) {
			captured = cmd
			return services.CheckoutResult{
				OrderID:     "ord-1",
				Status:      domain.OrderStatusPending,
				Total:       4000,
				Currency:    "USD",
				SessionID:   "cs_123",
				RedirectURL: "https://checkout.example/cs_123",
				ExpiresAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			}, nil
		},
	})
	handler.Routes(router)

	payload := `{"assetIds":["asset-1","asset-2"],"successUrl":"https://shop.example/done"}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(payload))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if captured.UserID != "user-1" || len(captured.AssetIDs) != 2 {
		t.Fatalf("unexpected command %#v", captured)
	}
	if captured.SuccessURL != "https://shop.example/done" {
		t.Fatalf("unexpected success url %s", captured.SuccessURL)
	}

	var resp checkoutResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OrderID != "ord-1" || resp.SessionID != "cs_123" {
		t.Fatalf("unexpected response %#v", resp)
	}
	if resp.RedirectURL != "https://checkout.example/cs_123" {
		t.Fatalf("expected redirect url returned, got %s", resp.RedirectURL)
	}
}

func TestCheckoutHandlersFreeCartReturnsCompletedOrder(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(&stubCheckoutService{
		createFunc: func(context.Context, services.CreateCheckoutCommand) (services.CheckoutResult, error) {
			return services.CheckoutResult{
				OrderID:  "ord-free",
				Status:   domain.OrderStatusCompleted,
				Total:    0,
				Currency: "USD",
			}, nil
		},
	})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"assetIds":["asset-free"]}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// Free carts complete inline, so no session means 200 rather than 201.
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp checkoutResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != string(domain.OrderStatusCompleted) || resp.SessionID != "" {
		t.Fatalf("unexpected response %#v", resp)
	}
}

func TestCheckoutHandlersUnauthenticated(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(&stubCheckoutService{})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"assetIds":["asset-1"]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCheckoutHandlersMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrCheckoutInvalidInput, http.StatusBadRequest, "invalid_request"},
		{services.ErrCheckoutAssetNotFound, http.StatusBadRequest, "asset_not_found"},
		{services.ErrCheckoutAlreadyOwned, http.StatusConflict, "already_owned"},
		{services.ErrCheckoutPaymentFailed, http.StatusBadGateway, "payment_failed"},
		{services.ErrCheckoutUnavailable, http.StatusServiceUnavailable, "checkout_unavailable"},
	}

	for _, tc := range cases {
		router := chi.NewRouter()
		serviceErr := tc.err
		handler := NewCheckoutHandlers(&stubCheckoutService{
			createFunc: func(context.Context, services.CreateCheckoutCommand) (services.CheckoutResult, error) {
				return services.CheckoutResult{}, serviceErr
			},
		})
		handler.Routes(router)

		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"assetIds":["asset-1"]}`))
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "user-1"}))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != tc.status {
			t.Fatalf("expected status %d for %v, got %d", tc.status, tc.err, rr.Code)
		}
		var errResp map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}
		if errResp["error"] != tc.code {
			t.Fatalf("expected error code %s, got %#v", tc.code, errResp["error"])
		}
	}
}

func TestCheckoutHandlersConflictNamesOwnedAssets(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(&stubCheckoutService{
		createFunc: func(context.Context, services.CreateCheckoutCommand) (services.CheckoutResult, error) {
			return services.CheckoutResult{}, &services.AlreadyOwnedError{Titles: []string{"Brush Kit", "Noise Pack"}}
		},
	})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"assetIds":["asset-1","asset-2"]}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var errResp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp["error"] != "already_owned" {
		t.Fatalf("expected error code already_owned, got %#v", errResp["error"])
	}
	message, _ := errResp["message"].(string)
	if message != "already owned: Brush Kit, Noise Pack" {
		t.Fatalf("expected conflict message to name owned assets, got %q", message)
	}
}

func TestCheckoutHandlersRejectsMalformedBody(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(&stubCheckoutService{})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{not json`))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

type stubCheckoutService struct {
	createFunc func(ctx context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutResult, error)
}

func (s *stubCheckoutService) CreateCheckout(ctx context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutResult, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.CheckoutResult{}, errors.New("not implemented")
}
