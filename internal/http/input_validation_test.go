package handlers_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationBadInputs(t *testing.T) {
	ta := newTestApp(t)
	c := ta.client(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"search with script", "GET", "/api/v1/search?q=%3Cscript%3E", nil, fiber.StatusBadRequest},
		{"search bad category", "GET", "/api/v1/search?q=kopi&category=a;b", nil, fiber.StatusBadRequest},
		{"availability missing id", "GET", "/api/v1/availability", nil, fiber.StatusBadRequest},
		{"availability bad id", "GET", "/api/v1/availability?productId=../x", nil, fiber.StatusBadRequest},
		{"availability unknown", "GET", "/api/v1/availability?productId=ghost", nil, fiber.StatusNotFound},
		{"product bad id", "GET", "/api/v1/products/a%20b", nil, fiber.StatusNotFound},
		{"cart missing product", "POST", "/api/v1/cart/items", map[string]any{"qty": 1}, fiber.StatusBadRequest},
		{"cart negative qty", "POST", "/api/v1/cart/items", map[string]any{"product_id": "kopi-susu", "qty": -2}, fiber.StatusBadRequest},
		{"cart malformed json", "POST", "/api/v1/cart/items", "{", fiber.StatusBadRequest},
		{"customer bad phone", "PUT", "/api/v1/cart/customer", map[string]string{"phone": "12ab"}, fiber.StatusBadRequest},
		{"review as guest", "POST", "/api/v1/products/kopi-susu/reviews", map[string]any{"rating": 5}, fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := c.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestSearchAndSuggestions(t *testing.T) {
	ta := newTestApp(t)
	c := ta.client(t)

	var res struct {
		Count    int `json:"count"`
		Products []struct {
			ID string `json:"id"`
		} `json:"products"`
	}
	decode(t, c.do("GET", "/api/v1/search?q=KOPI", nil), &res)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "kopi-susu", res.Products[0].ID)

	var sug struct {
		Groups []struct {
			Type  string           `json:"type"`
			Items []map[string]any `json:"items"`
		} `json:"groups"`
	}
	decode(t, c.do("GET", "/api/v1/search/suggestions?q=te", nil), &sug)
	require.NotEmpty(t, sug.Groups)
	var types []string
	for _, g := range sug.Groups {
		types = append(types, g.Type)
	}
	assert.Contains(t, types, "product")

	decode(t, c.do("GET", "/api/v1/search/suggestions?q=", nil), &sug)
	assert.Empty(t, sug.Groups)
}

func TestWishlistIsPerSession(t *testing.T) {
	ta := newTestApp(t)
	a, b := ta.client(t), ta.client(t)

	require.Equal(t, fiber.StatusNoContent, a.do("PUT", "/api/v1/wishlist/kopi-susu", nil).StatusCode)
	require.Equal(t, fiber.StatusNoContent, a.do("PUT", "/api/v1/wishlist/kopi-susu", nil).StatusCode)
	assert.Equal(t, fiber.StatusNotFound, a.do("PUT", "/api/v1/wishlist/ghost", nil).StatusCode)

	var items []map[string]any
	decode(t, a.do("GET", "/api/v1/wishlist", nil), &items)
	assert.Len(t, items, 1)
	decode(t, b.do("GET", "/api/v1/wishlist", nil), &items)
	assert.Empty(t, items)

	require.Equal(t, fiber.StatusNoContent, a.do("DELETE", "/api/v1/wishlist/kopi-susu", nil).StatusCode)
	decode(t, a.do("GET", "/api/v1/wishlist", nil), &items)
	assert.Empty(t, items)
}
