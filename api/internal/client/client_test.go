package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/api/internal/api/handlers"
	"stockroom/api/internal/api/router"
	"stockroom/api/internal/client"
	"stockroom/api/internal/core/domain"
	"stockroom/api/internal/core/services"
	"stockroom/api/internal/db/repository"
	"stockroom/api/internal/db/sqlite"
	"stockroom/api/internal/infrastructure/crypto"
	"stockroom/api/internal/telemetry"
)

type stack struct {
	api *client.Client
	hub *telemetry.Hub
	srv *httptest.Server
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := telemetry.NewHub()
	svc := services.NewInventoryService(
		repository.NewGroupRepository(db),
		repository.NewProductRepository(db),
		hub,
		logger,
	)

	sealer := crypto.Default()
	mux := router.NewRouter(ctx, router.RouterConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		Sealer:         sealer,
		GroupHandler:   handlers.NewGroupHandler(svc),
		ProductHandler: handlers.NewProductHandler(svc),
		StatsHandler:   handlers.NewStatsHandler(svc),
		EventsHandler:  handlers.NewEventsHandler(hub, sealer, []string{"http://localhost:3000"}, logger),
		HealthHandler:  handlers.NewHealthHandler(db),
		Logger:         logger,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &stack{
		api: client.New(srv.URL+"/api", client.WithTransport(srv.Client())),
		hub: hub,
		srv: srv,
	}
}

func TestClient_InventoryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	groups, err := s.api.ListGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	g, err := s.api.CreateGroup(ctx, domain.ProductGroup{Name: "Groceries", Description: "Food"})
	require.NoError(t, err)
	assert.Positive(t, g.ID)

	p, err := s.api.CreateProduct(ctx, domain.Product{
		GroupID:      g.ID,
		Name:         "Buckwheat",
		Manufacturer: "Farm",
		Quantity:     10,
		Price:        2.5,
	})
	require.NoError(t, err)
	assert.Equal(t, g.ID, p.GroupID)

	p, err = s.api.AddStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), p.Quantity)

	p, err = s.api.SellStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.Quantity)

	_, err = s.api.SellStock(ctx, p.ID, 100)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Not enough stock", apiErr.Message)

	total, err := s.api.TotalValue(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, total, 1e-9)

	groupTotal, err := s.api.GroupTotalValue(ctx, g.ID)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, groupTotal, 1e-9)

	found, err := s.api.SearchProducts(ctx, "buck wheat")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = s.api.SearchProducts(ctx, "FARM")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Buckwheat", found[0].Name)

	byGroup, err := s.api.ListProducts(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, byGroup, 1)

	updated, err := s.api.UpdateGroup(ctx, g.ID, domain.ProductGroup{Name: "Food", Description: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Food", updated.Name)

	require.NoError(t, s.api.DeleteGroup(ctx, g.ID))

	_, err = s.api.GetProduct(ctx, p.ID)
	assert.True(t, client.IsStatus(err, http.StatusNotFound))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Product not found", apiErr.Message)
}

func TestClient_ConflictAndValidationMessages(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	_, err := s.api.CreateGroup(ctx, domain.ProductGroup{Name: "Tools"})
	require.NoError(t, err)

	_, err = s.api.CreateGroup(ctx, domain.ProductGroup{Name: "Tools"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Group with this name already exists", apiErr.Message)

	_, err = s.api.CreateGroup(ctx, domain.ProductGroup{})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "name is required", apiErr.Message)

	_, err = s.api.AddStock(ctx, 1, 0)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "amount must be greater than 0", apiErr.Message)
}

func TestClient_WrongKeyFallsBackToGenericMessage(t *testing.T) {
	s := newStack(t)

	other, err := crypto.NewChannel("a completely different passphrase")
	require.NoError(t, err)

	api := client.New(s.srv.URL+"/api", client.WithTransport(s.srv.Client()), client.WithSealer(other))
	_, err = api.CreateGroup(context.Background(), domain.ProductGroup{Name: "Tools"})

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "An error occurred", apiErr.Message)
}

// ==============================================================================
// Transport-level behaviour
// ==============================================================================

type transportFunc func(*http.Request) (*http.Response, error)

func (f transportFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClient_SealsRequestsAndTagsThem(t *testing.T) {
	ch := crypto.Default()
	var seen *http.Request
	var seenBody string

	api := client.New("http://stock.test/api", client.WithTransport(transportFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		raw, _ := io.ReadAll(r.Body)
		seenBody = string(raw)

		sealed, _ := ch.Seal(`{"id":7,"name":"Tools","description":""}`)
		return respond(http.StatusCreated, sealed), nil
	})))

	g, err := api.CreateGroup(context.Background(), domain.ProductGroup{Name: "Tools"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), g.ID)

	assert.Equal(t, "/api/groups", seen.URL.Path)
	assert.Equal(t, crypto.ContentType, seen.Header.Get("Content-Type"))
	_, err = uuid.Parse(seen.Header.Get("X-Request-Id"))
	assert.NoError(t, err)

	plain, err := ch.Open(seenBody)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Tools","description":""}`, plain)
}

func TestClient_EmptyBodyIsNoContent(t *testing.T) {
	api := client.New("http://stock.test/api", client.WithTransport(transportFunc(func(r *http.Request) (*http.Response, error) {
		return respond(http.StatusNoContent, ""), nil
	})))

	assert.NoError(t, api.DeleteProduct(context.Background(), 3))
}

func TestClient_UnreadableSuccessBody(t *testing.T) {
	api := client.New("http://stock.test/api", client.WithTransport(transportFunc(func(r *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, "not-base64!!"), nil
	})))

	_, err := api.ListGroups(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, crypto.ErrUnreadable)
}

func TestClient_SearchEscapesQuery(t *testing.T) {
	var rawQuery string
	api := client.New("http://stock.test/api", client.WithTransport(transportFunc(func(r *http.Request) (*http.Response, error) {
		rawQuery = r.URL.Query().Get("q")
		sealed, _ := crypto.Default().Seal(`[]`)
		return respond(http.StatusOK, sealed), nil
	})))

	_, err := api.SearchProducts(context.Background(), "50% & more")
	require.NoError(t, err)
	assert.Equal(t, "50% & more", rawQuery)
}

// ==============================================================================
// Live events
// ==============================================================================

func TestClient_EventsAreSealedFrames(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan domain.Event, 4)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.api.Events(ctx, func(e domain.Event) { received <- e })
	}()

	require.Eventually(t, func() bool { return s.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	g, err := s.api.CreateGroup(context.Background(), domain.ProductGroup{Name: "Live"})
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, domain.EventGroupCreated, e.Type)
		assert.Equal(t, g.ID, e.GroupID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	wg.Wait()
}
