//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCart_NoAuth(t *testing.T) {
	resp := doGet(t, "/api/cart", "")
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestCart_EmptyByDefault(t *testing.T) {
	token := userToken(t, "cart-empty-user", false)

	resp := doGet(t, "/api/cart", token)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)

	view := decodeJSON[cartResponse](t, resp)
	if len(view.Items) != 0 || view.Total != 0 {
		t.Fatalf("expected empty cart, got %+v", view)
	}
}

func TestCart_AddUpdateRemove(t *testing.T) {
	token := userToken(t, "cart-flow-user", false)

	resp := doRequest(t, http.MethodPost, "/api/cart/add", token,
		map[string]any{"serviceId": classicFacialID, "quantity": 1})
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// Adding the same service again accumulates onto the existing line.
	resp = doRequest(t, http.MethodPost, "/api/cart/add", token,
		map[string]any{"serviceId": classicFacialID, "quantity": 2})
	wantStatus(t, resp, http.StatusOK)
	view := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(view.Items) != 1 || view.Items[0].Quantity != 3 {
		t.Fatalf("expected one line with quantity 3, got %+v", view.Items)
	}
	if view.Total != 3600 {
		t.Errorf("total: got %v, want 3600", view.Total)
	}

	resp = doRequest(t, http.MethodPut, "/api/cart/update", token,
		map[string]any{"serviceId": classicFacialID, "quantity": 1})
	wantStatus(t, resp, http.StatusOK)
	view = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if view.Items[0].Quantity != 1 || view.Total != 1200 {
		t.Fatalf("expected quantity 1 total 1200, got %+v", view)
	}

	resp = doRequest(t, http.MethodDelete, "/api/cart/remove/"+classicFacialID, token, nil)
	wantStatus(t, resp, http.StatusOK)
	view = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(view.Items) != 0 || view.Total != 0 {
		t.Fatalf("expected empty cart after remove, got %+v", view)
	}
}

func TestCart_UnknownService(t *testing.T) {
	token := userToken(t, "cart-unknown-user", false)

	resp := doRequest(t, http.MethodPost, "/api/cart/add", token,
		map[string]any{"serviceId": "3b1c0000-0000-0000-0000-000000000000", "quantity": 1})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusNotFound)
}

func TestCart_InvalidQuantity(t *testing.T) {
	token := userToken(t, "cart-badqty-user", false)

	resp := doRequest(t, http.MethodPost, "/api/cart/add", token,
		map[string]any{"serviceId": classicFacialID, "quantity": -1})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestCart_IsolatedPerUser(t *testing.T) {
	alice := userToken(t, "cart-alice", false)
	bob := userToken(t, "cart-bob", false)

	resp := doRequest(t, http.MethodPost, "/api/cart/add", alice,
		map[string]any{"serviceId": manicureID, "quantity": 1})
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = doGet(t, "/api/cart", bob)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)
	view := decodeJSON[cartResponse](t, resp)
	if len(view.Items) != 0 {
		t.Fatalf("expected bob's cart to be empty, got %+v", view.Items)
	}
}
