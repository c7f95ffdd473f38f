package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/rxexchange-backend/internal/orders"
	"github.com/angelmondragon/rxexchange-backend/internal/supply"
	pkgAuth "github.com/angelmondragon/rxexchange-backend/pkg/auth"
	"github.com/angelmondragon/rxexchange-backend/pkg/config"
	dbpkg "github.com/angelmondragon/rxexchange-backend/pkg/db"
	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	"github.com/angelmondragon/rxexchange-backend/pkg/outbox"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type routerEnv struct {
	db     *gorm.DB
	router http.Handler
	cfg    *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "rxexchange-identity"},
		Orders: config.OrdersConfig{
			PendingTTL:            24 * time.Hour,
			AllowSupplierCancel:   true,
			ExpiredCancelReason:   "expired",
			MaxQuantityPerRequest: 1000,
		},
	}
}

func newRouterEnv(t *testing.T, dbP dbpkg.Pinger) *routerEnv {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.SupplyListing{}, &models.Order{}, &models.OrderItem{}, &models.OutboxEvent{}))

	cfg := testConfig()
	svc, err := orders.NewService(
		orders.NewRepository(conn),
		dbpkg.FromConn(conn),
		supply.NewLedger(nil, nil),
		outbox.NewService(outbox.NewRepository(), nil),
		orders.PolicyFromConfig(cfg.Orders),
	)
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if dbP == nil {
		dbP = dbpkg.FromConn(conn)
	}
	return &routerEnv{db: conn, cfg: cfg, router: NewRouter(cfg, logg, dbP, nil, svc)}
}

func (e *routerEnv) seedListing(t *testing.T, supplier uuid.UUID, qty int) models.SupplyListing {
	t.Helper()
	now := time.Now().UTC()
	listing := models.SupplyListing{
		ID:                uuid.New(),
		TenantID:          supplier,
		DrugID:            uuid.New(),
		AvailableQuantity: qty,
		UnitPrice:         decimal.RequireFromString("3.50"),
		MinOrderQuantity:  1,
		Status:            enums.ListingStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, e.db.Create(&listing).Error)
	return listing
}

func (e *routerEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Idempotency-Key", uuid.NewString())
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func buildToken(t *testing.T, cfg *config.Config, tenantID uuid.UUID, tenantType enums.TenantType) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{
		UserID:     uuid.New(),
		TenantID:   &tenantID,
		Role:       enums.UserRoleManager,
		TenantType: &tenantType,
	})
	require.NoError(t, err)
	return token
}

type orderEnvelope struct {
	Data orders.OrderView `json:"data"`
}

func decodeOrder(t *testing.T, resp *httptest.ResponseRecorder) orders.OrderView {
	t.Helper()
	var env orderEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env.Data
}

func TestHealthLive(t *testing.T) {
	env := newRouterEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "test", resp.Header().Get("X-RxExchange-Env"))
}

func TestHealthReadyReportsDatabaseFailure(t *testing.T) {
	env := newRouterEnv(t, stubPinger{err: errors.New("down")})
	resp := env.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	env := newRouterEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestOrdersRejectMissingJWT(t *testing.T) {
	env := newRouterEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/api/v1/orders", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSupplierRoutesRequireSupplierTenant(t *testing.T) {
	env := newRouterEnv(t, nil)
	token := buildToken(t, env.cfg, uuid.New(), enums.TenantTypePharmacy)
	resp := env.do(t, http.MethodPost, "/api/v1/supplier/orders/"+uuid.NewString()+"/confirm", token, "")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestLogisticsRoutesRequireLogisticsTenant(t *testing.T) {
	env := newRouterEnv(t, nil)
	token := buildToken(t, env.cfg, uuid.New(), enums.TenantTypeSupplier)
	resp := env.do(t, http.MethodPost, "/api/v1/logistics/orders/"+uuid.NewString()+"/transport", token, `{"status":"in_transit"}`)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestOnlyPharmaciesPlaceOrders(t *testing.T) {
	env := newRouterEnv(t, nil)
	supplier := uuid.New()
	listing := env.seedListing(t, supplier, 10)
	token := buildToken(t, env.cfg, uuid.New(), enums.TenantTypeSupplier)
	resp := env.do(t, http.MethodPost, "/api/v1/orders", token, `{"supply_listing_id":"`+listing.ID.String()+`","quantity":2}`)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	env := newRouterEnv(t, nil)
	pharmacy, supplier, carrier := uuid.New(), uuid.New(), uuid.New()
	listing := env.seedListing(t, supplier, 10)

	buyerToken := buildToken(t, env.cfg, pharmacy, enums.TenantTypePharmacy)
	supplierToken := buildToken(t, env.cfg, supplier, enums.TenantTypeSupplier)
	carrierToken := buildToken(t, env.cfg, carrier, enums.TenantTypeLogistics)

	resp := env.do(t, http.MethodPost, "/api/v1/orders", buyerToken, `{"supply_listing_id":"`+listing.ID.String()+`","quantity":4}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decodeOrder(t, resp)
	require.Equal(t, enums.OrderStatusPending, created.Status)
	require.Equal(t, pharmacy, created.BuyerTenantID)
	require.True(t, created.Total.Equal(decimal.RequireFromString("14")))

	var stored models.SupplyListing
	require.NoError(t, env.db.First(&stored, "id = ?", listing.ID).Error)
	require.Equal(t, 6, stored.AvailableQuantity)

	orderPath := "/api/v1/orders/" + created.ID.String()
	supplierPath := "/api/v1/supplier/orders/" + created.ID.String()

	resp = env.do(t, http.MethodGet, orderPath, supplierToken, "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, http.MethodPost, supplierPath+"/confirm", supplierToken, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, enums.OrderStatusConfirmed, decodeOrder(t, resp).Status)

	resp = env.do(t, http.MethodPost, orderPath+"/cancel", buyerToken, "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = env.do(t, http.MethodPost, supplierPath+"/ship", supplierToken, `{"logistics_tenant_id":"`+carrier.String()+`","tracking_number":"TRK-1"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	shipped := decodeOrder(t, resp)
	require.Equal(t, enums.OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.LogisticsTenantID)

	resp = env.do(t, http.MethodPost, "/api/v1/logistics/orders/"+created.ID.String()+"/transport", carrierToken, `{"status":"in_transit"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, enums.OrderStatusInTransit, decodeOrder(t, resp).Status)

	resp = env.do(t, http.MethodPost, orderPath+"/receipt", buyerToken, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	delivered := decodeOrder(t, resp)
	require.Equal(t, enums.OrderStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	resp = env.do(t, http.MethodGet, "/api/v1/orders", buyerToken, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Data orders.OrderList `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Data.Orders, 1)
}

func TestBuyerCancelReleasesStock(t *testing.T) {
	env := newRouterEnv(t, nil)
	pharmacy, supplier := uuid.New(), uuid.New()
	listing := env.seedListing(t, supplier, 5)
	buyerToken := buildToken(t, env.cfg, pharmacy, enums.TenantTypePharmacy)

	resp := env.do(t, http.MethodPost, "/api/v1/orders", buyerToken, `{"supply_listing_id":"`+listing.ID.String()+`","quantity":5}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decodeOrder(t, resp)

	resp = env.do(t, http.MethodPost, "/api/v1/orders/"+created.ID.String()+"/cancel", buyerToken, `{"reason":"ordered by mistake"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, enums.OrderStatusCancelledByPharmacy, decodeOrder(t, resp).Status)

	var stored models.SupplyListing
	require.NoError(t, env.db.First(&stored, "id = ?", listing.ID).Error)
	require.Equal(t, 5, stored.AvailableQuantity)
}

func TestForeignTenantCannotReadOrder(t *testing.T) {
	env := newRouterEnv(t, nil)
	supplier := uuid.New()
	listing := env.seedListing(t, supplier, 5)
	buyerToken := buildToken(t, env.cfg, uuid.New(), enums.TenantTypePharmacy)

	resp := env.do(t, http.MethodPost, "/api/v1/orders", buyerToken, `{"supply_listing_id":"`+listing.ID.String()+`","quantity":1}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decodeOrder(t, resp)

	outsider := buildToken(t, env.cfg, uuid.New(), enums.TenantTypePharmacy)
	resp = env.do(t, http.MethodGet, "/api/v1/orders/"+created.ID.String(), outsider, "")
	require.Equal(t, http.StatusForbidden, resp.Code)

	regulator := buildToken(t, env.cfg, uuid.New(), enums.TenantTypeRegulator)
	resp = env.do(t, http.MethodGet, "/api/v1/orders/"+created.ID.String(), regulator, "")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRegulatorListsOrdersAcrossTenants(t *testing.T) {
	env := newRouterEnv(t, nil)
	supplier := uuid.New()
	listing := env.seedListing(t, supplier, 5)

	for i := 0; i < 2; i++ {
		buyerToken := buildToken(t, env.cfg, uuid.New(), enums.TenantTypePharmacy)
		resp := env.do(t, http.MethodPost, "/api/v1/orders", buyerToken, `{"supply_listing_id":"`+listing.ID.String()+`","quantity":1}`)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	regulator := buildToken(t, env.cfg, uuid.New(), enums.TenantTypeRegulator)
	resp := env.do(t, http.MethodGet, "/api/v1/orders", regulator, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var list struct {
		Data orders.OrderList `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Data.Orders, 2)
}
