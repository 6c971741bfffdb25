package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/testhelpers"
)

func TestTableAndOrderFlow(t *testing.T) {
	r, db := setupRouterForTest(t)
	owner, est := testhelpers.SetupTestEstablishment(t, db, "flow")
	staff := testhelpers.SetupTestUser(t, db, "waiter@example.com", models.RoleStaff, &est.ID)
	ownerToken, staffToken := tokenFor(t, owner), tokenFor(t, staff)
	product := testhelpers.SetupTestProduct(t, db, est.ID, nil, "Nasi Goreng", "25000")
	base := "/api/establishments/" + itoa(est.ID)

	w := doRequest(t, r, http.MethodPost, base+"/tables", staffToken, map[string]string{"number": "A1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doRequest(t, r, http.MethodPost, base+"/tables", ownerToken, map[string]string{"number": "A1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var table models.Table
	decode(t, w, &table)
	tableID := itoa(table.ID)

	w = doRequest(t, r, http.MethodGet, "/tables/"+tableID+"/scan", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var scan services.TableScan
	decode(t, w, &scan)
	assert.Equal(t, "flow", scan.EstablishmentSlug)
	assert.Nil(t, scan.CurrentSession)

	w = doRequest(t, r, http.MethodGet, base+"/tables/"+tableID+"/qr", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var qr services.TableQR
	decode(t, w, &qr)
	assert.Equal(t, "http://qr.test/menu/flow?table="+tableID, qr.URL)

	// A customer on a free table gets a fresh session.
	w = doRequest(t, r, http.MethodPost, "/tables/"+tableID+"/orders", "", map[string]interface{}{
		"customer_name": "Budi",
		"items":         []map[string]interface{}{{"product_id": product.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decode(t, w, &order)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "50000.00", order.TotalAmount.StringFixed(2))
	session := order.TableSession.String()

	w = doRequest(t, r, http.MethodPost, "/tables/"+tableID+"/orders", "", map[string]interface{}{
		"session_id": "not-a-uuid",
		"items":      []map[string]interface{}{{"product_id": product.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(t, r, http.MethodPost, "/tables/"+tableID+"/orders", "", map[string]interface{}{
		"session_id": session,
		"items":      []map[string]interface{}{{"product_id": 9999, "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(t, r, http.MethodGet, "/tables/"+tableID+"/sessions/"+session+"/orders", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sessionOrders []models.Order
	decode(t, w, &sessionOrders)
	assert.Len(t, sessionOrders, 1)

	w = doRequest(t, r, http.MethodGet, base+"/orders?status=pending", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Order
	decode(t, w, &listed)
	assert.Len(t, listed, 1)
	w = doRequest(t, r, http.MethodGet, base+"/orders?status=lost", staffToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	orderPath := base + "/orders/" + itoa(order.ID)
	w = doRequest(t, r, http.MethodPatch, orderPath+"/status", staffToken, map[string]string{"status": "READY"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doRequest(t, r, http.MethodPatch, orderPath+"/status", staffToken, map[string]string{"status": "PREPARING"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &order)
	assert.Equal(t, models.OrderPreparing, order.Status)

	w = doRequest(t, r, http.MethodGet, base+"/dashboard", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.OpenTables)
	assert.Equal(t, int64(1), stats.OrdersToday[models.OrderPreparing])

	// Active orders keep the table open unless forced.
	w = doRequest(t, r, http.MethodPost, base+"/tables/"+tableID+"/close", staffToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doRequest(t, r, http.MethodPost, base+"/tables/"+tableID+"/close?force=true", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &table)
	assert.Nil(t, table.CurrentSession)

	w = doRequest(t, r, http.MethodGet, orderPath, staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &order)
	assert.Equal(t, models.OrderCancelled, order.Status)

	// The old session is gone.
	w = doRequest(t, r, http.MethodGet, "/tables/"+tableID+"/sessions/"+session+"/orders", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, r, http.MethodPost, base+"/tables/"+tableID+"/open", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, r, http.MethodPost, base+"/tables/"+tableID+"/open", staffToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doRequest(t, r, http.MethodDelete, base+"/tables/"+tableID, ownerToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, r, http.MethodDelete, orderPath, staffToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doRequest(t, r, http.MethodDelete, orderPath, ownerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrdersAreScopedToEstablishment(t *testing.T) {
	r, db := setupRouterForTest(t)
	_, est := testhelpers.SetupTestEstablishment(t, db, "scoped-a")
	otherOwner, other := testhelpers.SetupTestEstablishment(t, db, "scoped-b")
	table := testhelpers.SetupTestTable(t, db, est.ID, "1")
	product := testhelpers.SetupTestProduct(t, db, other.ID, nil, "Foreign dish", "10000")

	// Products of another establishment cannot be ordered.
	w := doRequest(t, r, http.MethodPost, "/tables/"+itoa(table.ID)+"/orders", "", map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": product.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/establishments/"+itoa(est.ID)+"/orders", tokenFor(t, otherOwner), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
