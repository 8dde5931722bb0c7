package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.URL, 5*time.Second, func() string { return token })
}

func TestLoginDecodesFlatCredentials(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":  "tok-1",
			"type":   "Bearer",
			"userId": 7,
			"nombre": "Ana",
			"email":  "ana@example.com",
		})
	}), "")

	creds, err := c.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", creds.Token)
	assert.Equal(t, int64(7), creds.UserID)
	assert.Equal(t, "Ana", creds.Nombre)
}

func TestAuthedSendsBearerAndRequestID(t *testing.T) {
	var gotAuth, gotReqID string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		json.NewEncoder(w).Encode(cartPayload{})
	}), "tok-xyz")

	_, err := c.GetCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-xyz", gotAuth)
	assert.NotEmpty(t, gotReqID)
}

func TestAuthedWithoutToken(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should never reach the backend")
	}), "")

	_, err := c.GetCart(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestNonOKBecomesHTTPError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "correo duplicado"})
	}), "")

	_, err := c.Register(context.Background(), RegisterRequest{Email: "dup@example.com"})
	require.Error(t, err)

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Equal(t, "correo duplicado", he.Message)
	assert.False(t, IsAuthError(err))
}

func TestIsAuthError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), "stale")

	_, err := c.Validate(context.Background(), "stale")
	assert.True(t, IsAuthError(err))
}

func TestRemoveCartItemSendsBodyAndPath(t *testing.T) {
	var gotPath string
	var gotBody map[string]int64
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, "DELETE", r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}), "tok")

	require.NoError(t, c.RemoveCartItem(context.Background(), 42))
	assert.Equal(t, "/cart/items/42", gotPath)
	assert.Equal(t, int64(42), gotBody["itemId"])
}

func TestRecoverPasswordSendsEmail(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, "POST", r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}), "")

	require.NoError(t, c.RecoverPassword(context.Background(), "ana@example.com"))
	assert.Equal(t, "/users/password-recovery", gotPath)
	assert.Equal(t, "ana@example.com", gotBody["email"])
}

func TestMenuItemsEnvelope(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(menuEnvelope{
				Success: true,
				Data:    []MenuItem{{Title: "Productos", Path: "/products"}},
			})
		}), "tok")

		items, err := c.MenuItems(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Productos", items[0].Title)
	})

	t.Run("malformed", func(t *testing.T) {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]bool{"success": false})
		}), "tok")

		_, err := c.MenuItems(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed")
	})
}

func TestCartItemUnitPrice(t *testing.T) {
	assert.Equal(t, 10.0, CartItem{ProductMonto: 10}.UnitPrice())
	assert.Equal(t, 7.5, CartItem{Producto: &Product{Monto: 7.5}}.UnitPrice())
	assert.Equal(t, 0.0, CartItem{}.UnitPrice())
}

func TestOrderConfirmationReference(t *testing.T) {
	assert.Equal(t, "ORD-9", OrderConfirmation{ID: 3, NumeroOrden: "ORD-9"}.Reference())
	assert.Equal(t, "3", OrderConfirmation{ID: 3}.Reference())
}
