package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fhir-gateway/gateway/internal/apierr"
	"github.com/fhir-gateway/gateway/internal/gateway"
	"github.com/fhir-gateway/gateway/internal/lifecycle"
	"github.com/fhir-gateway/gateway/internal/model"
	"github.com/fhir-gateway/gateway/internal/pagination"
	"github.com/fhir-gateway/gateway/internal/router"
	"github.com/fhir-gateway/gateway/internal/searchengine"
	"github.com/fhir-gateway/gateway/internal/tenant"
)

// paginationScope/paginationCollection name the Admin.cache collection
// spec §3/§4.D describe, one per tenant bucket.
const (
	paginationScope      = "Admin"
	paginationCollection = "cache"
	resourceScope        = "Resources"
)

// Handlers is the process-wide HTTP surface, holding the shared, tenant-
// agnostic collaborators. A request-scoped Engine (and pagination Cache) is
// cheaply rebuilt per request once the tenant is known — the Engine struct
// itself carries no connection state, only a Router/Schema/Parser/size
// config plus whichever Searcher/Fetcher/Cache a given call should use.
type Handlers struct {
	GW            *gateway.Gateway
	Lifecycle     *lifecycle.Lifecycle
	Router        *router.Router
	EngineTemplate *searchengine.Engine
	DefaultTenant string
}

// New constructs a Handlers. engineTemplate must have Router/Schema/Parser/
// FTSLimit/DefaultPageSize/MaxPageSize populated; its Search/Fetch/Cache
// fields are ignored and replaced per request.
func New(gw *gateway.Gateway, lc *lifecycle.Lifecycle, r *router.Router, engineTemplate *searchengine.Engine, defaultTenant string) *Handlers {
	return &Handlers{GW: gw, Lifecycle: lc, Router: r, EngineTemplate: engineTemplate, DefaultTenant: defaultTenant}
}

// RegisterRoutes wires the §6 HTTP surface onto e.
func (h *Handlers) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/fhir/:tenant")
	g.Use(h.bindTenant)

	g.POST("", h.bundle)
	g.GET("/:type", h.search)
	g.POST("/:type", h.create)
	g.GET("/:type/:id", h.read)
	g.PUT("/:type/:id", h.update)
	g.PATCH("/:type/:id", h.patch)
	g.DELETE("/:type/:id", h.delete)
	g.GET("/:type/:id/_history", h.historyInstance)
	g.GET("/:type/:id/_history/:vid", h.vread)
	g.GET("/:type/:id/$everything", h.everything)
}

// bindTenant validates the :tenant path param and binds it to the request
// context, per component A's two-operation contract.
func (h *Handlers) bindTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("tenant")
		if !tenant.Valid(id) {
			return writeError(c, apierr.Newf(apierr.InvalidRequest, "invalid tenant identifier %q", id))
		}
		ctx := tenant.Set(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// engineFor rebinds the shared Engine template to tenantID's Gateway
// adapter and pagination cache, per adapter.go's "one adapter per request"
// contract.
func (h *Handlers) engineFor(tenantID string) (*searchengine.Engine, error) {
	adapter := &searchengine.GatewayAdapter{GW: h.GW, Tenant: tenantID, Scope: resourceScope}
	kv, err := h.GW.KV(tenantID, paginationScope, paginationCollection)
	if err != nil {
		return nil, err
	}
	eng := *h.EngineTemplate
	eng.Search = adapter
	eng.Fetch = adapter
	eng.Cache = pagination.New(kv)
	return &eng, nil
}

func (h *Handlers) read(c echo.Context) error {
	ctx := c.Request().Context()
	resource, err := h.Lifecycle.Read(ctx, c.Param("tenant"), c.Param("type"), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	setVersionHeaders(c, resource.Meta.VersionID, resource.Meta.LastUpdated)
	return c.JSON(http.StatusOK, resource.ToDocument())
}

func (h *Handlers) vread(c echo.Context) error {
	ctx := c.Request().Context()
	version, err := h.Lifecycle.VRead(ctx, c.Param("tenant"), c.Param("type"), c.Param("id"), c.Param("vid"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, version.ToDocument())
}

func (h *Handlers) create(c echo.Context) error {
	ctx := c.Request().Context()
	var body map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return writeError(c, apierr.Newf(apierr.InvalidRequest, "malformed JSON body: %v", err))
	}
	resource, err := h.Lifecycle.Create(ctx, c.Param("tenant"), c.Param("type"), body, "")
	if err != nil {
		return writeError(c, err)
	}
	setVersionHeaders(c, resource.Meta.VersionID, resource.Meta.LastUpdated)
	c.Response().Header().Set("Location", resource.Key())
	return c.JSON(http.StatusCreated, resource.ToDocument())
}

func (h *Handlers) update(c echo.Context) error {
	ctx := c.Request().Context()
	var body map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return writeError(c, apierr.Newf(apierr.InvalidRequest, "malformed JSON body: %v", err))
	}
	ifMatch, err := ifMatchVersion(c)
	if err != nil {
		return writeError(c, err)
	}
	resource, created, err := h.Lifecycle.Update(ctx, c.Param("tenant"), c.Param("type"), c.Param("id"), body, ifMatch)
	if err != nil {
		return writeError(c, err)
	}
	setVersionHeaders(c, resource.Meta.VersionID, resource.Meta.LastUpdated)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, resource.ToDocument())
}

func (h *Handlers) patch(c echo.Context) error {
	ctx := c.Request().Context()
	var patch map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil {
		return writeError(c, apierr.Newf(apierr.InvalidRequest, "malformed JSON body: %v", err))
	}
	resource, err := h.Lifecycle.Patch(ctx, c.Param("tenant"), c.Param("type"), c.Param("id"), func(current map[string]interface{}) (map[string]interface{}, error) {
		return mergePatch(current, patch), nil
	})
	if err != nil {
		return writeError(c, err)
	}
	setVersionHeaders(c, resource.Meta.VersionID, resource.Meta.LastUpdated)
	return c.JSON(http.StatusOK, resource.ToDocument())
}

func (h *Handlers) delete(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.Lifecycle.Delete(ctx, c.Param("tenant"), c.Param("type"), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) historyInstance(c echo.Context) error {
	ctx := c.Request().Context()
	since, err := parseSince(c.QueryParam("_since"))
	if err != nil {
		return writeError(c, err)
	}
	count := parseCount(c.QueryParam("_count"), 50)

	versions, err := h.Lifecycle.History(ctx, c.Param("tenant"), c.Param("type"), c.Param("id"), since, count)
	if err != nil {
		return writeError(c, err)
	}

	entries := make([]model.BundleEntry, 0, len(versions))
	for _, v := range versions {
		status := "200 OK"
		if v.Deleted {
			status = "410 Gone"
		}
		entries = append(entries, model.BundleEntry{
			FullURL:  v.Type + "/" + v.ID,
			Resource: v.ToDocument(),
			Request:  &model.BundleRequest{Method: http.MethodGet, URL: v.Type + "/" + v.ID + "/_history/" + v.VersionID},
			Response: &model.BundleResponse{Status: status, Etag: lifecycle.FormatETag(v.VersionID)},
		})
	}
	total := len(entries)
	return c.JSON(http.StatusOK, model.NewHistoryBundle(entries, &total))
}

func (h *Handlers) search(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := c.Param("tenant")
	eng, err := h.engineFor(tenantID)
	if err != nil {
		return writeError(c, err)
	}
	bundle, err := eng.Search(ctx, c.Param("type"), c.QueryParams(), baseURL(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handlers) everything(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := c.Param("tenant")
	eng, err := h.engineFor(tenantID)
	if err != nil {
		return writeError(c, err)
	}
	bundle, err := eng.Everything(ctx, c.Param("type"), c.Param("id"), c.QueryParams(), baseURL(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handlers) bundle(c echo.Context) error {
	ctx := c.Request().Context()
	var b model.Bundle
	if err := json.NewDecoder(c.Request().Body).Decode(&b); err != nil {
		return writeError(c, apierr.Newf(apierr.InvalidRequest, "malformed bundle: %v", err))
	}
	result, err := h.Lifecycle.ExecuteBundle(ctx, c.Param("tenant"), &b)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
