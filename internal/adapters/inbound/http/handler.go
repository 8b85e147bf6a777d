package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/inbound"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// RequestRecorder receives the duration of every served request.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// Handler implements the public and admin REST endpoints:
//   - GET    /api/v1/risk-warning
//   - GET    /api/v1/brokers
//   - GET    /api/v1/brokers/:slug
//   - GET    /api/v1/admin/risk-warnings
//   - PUT    /api/v1/admin/risk-warnings/:lang/:type
//   - DELETE /api/v1/admin/risk-warnings/:lang/:type
//   - POST   /api/v1/admin/risk-warnings/cache/clear
type Handler struct {
	resolver inbound.RiskWarningResolver
	catalog  inbound.BrokerCatalog
	admin    inbound.TemplateAdmin
	logger   *slog.Logger
}

// NewHandler creates a Handler. admin may be nil when the admin API is disabled.
func NewHandler(resolver inbound.RiskWarningResolver, catalog inbound.BrokerCatalog, admin inbound.TemplateAdmin, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		resolver: resolver,
		catalog:  catalog,
		admin:    admin,
		logger:   logger.With("component", "http-handler"),
	}
}

// RegisterPublicRoutes registers the unauthenticated endpoints.
func (h *Handler) RegisterPublicRoutes(r gin.IRouter) {
	r.GET("/risk-warning", h.GetRiskWarning)
	r.GET("/brokers", h.ListBrokers)
	r.GET("/brokers/:slug", h.GetBroker)
}

// RegisterAdminRoutes registers the template maintenance endpoints.
func (h *Handler) RegisterAdminRoutes(r gin.IRouter) {
	r.GET("/risk-warnings", h.ListTemplates)
	r.PUT("/risk-warnings/:lang/:type", h.UpsertTemplate)
	r.DELETE("/risk-warnings/:lang/:type", h.DeleteTemplate)
	r.POST("/risk-warnings/cache/clear", h.ClearCache)
}

type riskWarningResponse struct {
	RiskWarning string `json:"riskWarning"`
	Language    string `json:"language"`
	BrokerType  string `json:"brokerType"`
}

// GetRiskWarning resolves a disclaimer. "mode=static" uses the built-in table only.
func (h *Handler) GetRiskWarning(c *gin.Context) {
	var percentage any
	if raw, ok := c.GetQuery("percentage"); ok {
		percentage = raw
	}
	brokerType := c.Query("broker_type")
	lang := c.Query("lang")

	var text string
	switch c.DefaultQuery("mode", "") {
	case "static":
		text = h.resolver.ResolveSync(percentage, brokerType, lang)
	case "":
		text = h.resolver.Resolve(c.Request.Context(), percentage, brokerType, lang)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be empty or \"static\""})
		return
	}

	c.JSON(http.StatusOK, riskWarningResponse{
		RiskWarning: text,
		Language:    entity.NormalizeLanguage(lang),
		BrokerType:  entity.ParseBrokerType(brokerType).String(),
	})
}

type brokerResponse struct {
	Slug             string   `json:"slug"`
	Name             string   `json:"name"`
	BrokerType       string   `json:"brokerType"`
	LogoURL          string   `json:"logoUrl,omitempty"`
	Rating           float64  `json:"rating"`
	Bonus            string   `json:"bonus,omitempty"`
	Regulation       string   `json:"regulation,omitempty"`
	MinDeposit       string   `json:"minDeposit,omitempty"`
	MaxLeverage      string   `json:"maxLeverage,omitempty"`
	SpreadsFrom      string   `json:"spreadsFrom,omitempty"`
	IsFeatured       bool     `json:"isFeatured"`
	Features         []string `json:"features"`
	Description      string   `json:"description,omitempty"`
	ButtonText       string   `json:"buttonText,omitempty"`
	SearchResultText string   `json:"searchResultText,omitempty"`
	RiskWarning      string   `json:"riskWarning,omitempty"`
}

func newBrokerResponse(b *entity.Broker, t *entity.BrokerTranslation, riskWarning string) brokerResponse {
	resp := brokerResponse{
		Slug:        b.Slug,
		Name:        b.Name,
		BrokerType:  b.BrokerType.String(),
		LogoURL:     b.LogoURL,
		Rating:      b.Rating,
		Bonus:       b.Bonus,
		Regulation:  b.Regulation,
		MinDeposit:  b.MinDeposit,
		MaxLeverage: b.MaxLeverage,
		SpreadsFrom: b.SpreadsFrom,
		IsFeatured:  b.IsFeatured,
		Features:    b.Features,
		RiskWarning: riskWarning,
	}
	if resp.Features == nil {
		resp.Features = []string{}
	}
	if t != nil {
		resp.Description = t.Description
		resp.ButtonText = t.ButtonText
		resp.SearchResultText = t.SearchResultText
	}
	return resp
}

// ListBrokers lists active brokers.
func (h *Handler) ListBrokers(c *gin.Context) {
	filter := entity.BrokerFilter{
		BrokerType: entity.BrokerType(c.Query("type")),
		Query:      c.Query("q"),
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "featured must be a boolean"})
			return
		}
		filter.FeaturedOnly = featured
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	views, err := h.catalog.ListBrokers(c.Request.Context(), filter, c.Query("lang"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	brokers := make([]brokerResponse, len(views))
	for i, v := range views {
		brokers[i] = newBrokerResponse(v.Broker, v.Translation, v.RiskWarning)
	}
	c.JSON(http.StatusOK, gin.H{"brokers": brokers, "count": len(brokers)})
}

// GetBroker returns a broker with its related brokers.
func (h *Handler) GetBroker(c *gin.Context) {
	detail, err := h.catalog.GetBroker(c.Request.Context(), c.Param("slug"), c.Query("lang"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	related := make([]brokerResponse, len(detail.Related))
	for i, b := range detail.Related {
		related[i] = newBrokerResponse(b, nil, "")
	}
	c.JSON(http.StatusOK, gin.H{
		"broker":  newBrokerResponse(detail.Broker, detail.Translation, detail.RiskWarning),
		"related": related,
	})
}

type templateResponse struct {
	Language   string    `json:"language"`
	BrokerType string    `json:"brokerType"`
	Template   string    `json:"template"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newTemplateResponse(rt *entity.RiskTemplate) templateResponse {
	return templateResponse{
		Language:   rt.LanguageCode,
		BrokerType: rt.BrokerType.String(),
		Template:   rt.Template,
		UpdatedAt:  rt.UpdatedAt,
	}
}

// ListTemplates returns every stored template.
func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.admin.ListTemplates(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := make([]templateResponse, len(templates))
	for i, rt := range templates {
		resp[i] = newTemplateResponse(rt)
	}
	c.JSON(http.StatusOK, gin.H{"templates": resp})
}

type upsertTemplateRequest struct {
	Template string `json:"template" binding:"required"`
}

// UpsertTemplate creates or replaces a template.
func (h *Handler) UpsertTemplate(c *gin.Context) {
	var req upsertTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"template\": \"...\"}"})
		return
	}

	rt, err := h.admin.UpsertTemplate(c.Request.Context(), c.Param("lang"), c.Param("type"), req.Template)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTemplateResponse(rt))
}

// DeleteTemplate removes a template.
func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.admin.DeleteTemplate(c.Request.Context(), c.Param("lang"), c.Param("type")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearCache clears every template cache across instances.
func (h *Handler) ClearCache(c *gin.Context) {
	h.admin.ClearCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// respondError maps service errors to status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, outbound.ErrBrokerNotFound), errors.Is(err, outbound.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, inbound.ErrInvalidTemplate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
