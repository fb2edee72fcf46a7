package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/asset-market/internal/core/domain"
	"github.com/rl1809/asset-market/internal/core/service"
)

// HTTPHandler exposes the market over HTTP. Caller identity travels in the
// request body; the service enforces every authorization rule.
type HTTPHandler struct {
	market *service.MarketService
	logger *zap.Logger
}

func NewHTTPHandler(market *service.MarketService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{market: market, logger: logger}
}

// Register binds all routes on the given engine.
func (h *HTTPHandler) Register(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.POST("/sales", h.postSale)
	api.GET("/sales", h.listSales)
	api.GET("/sales/:id", h.getSale)
	api.GET("/sales/:id/status", h.getStatus)
	api.POST("/sales/:id/buy", h.buy)
	api.POST("/sales/:id/cancel", h.cancel)

	admin := api.Group("/admin")
	admin.POST("/pause", h.pause)
	admin.POST("/unpause", h.unpause)
}

type postSaleRequest struct {
	Seller    string `json:"seller" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
	AssetID   uint64 `json:"asset_id"`
	UnitPrice uint64 `json:"unit_price"`
	Quantity  uint64 `json:"quantity"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
}

type buyRequest struct {
	RequestID string `json:"request_id"`
	Buyer     string `json:"buyer" binding:"required"`
	Quantity  uint64 `json:"quantity"`
	Payment   uint64 `json:"payment"`
}

type cancelRequest struct {
	Seller string `json:"seller" binding:"required"`
}

type adminRequest struct {
	Caller string `json:"caller" binding:"required"`
}

type saleResponse struct {
	ID        uint64 `json:"id"`
	Seller    string `json:"seller"`
	Kind      string `json:"kind"`
	AssetID   uint64 `json:"asset_id"`
	UnitPrice uint64 `json:"unit_price"`
	Total     uint64 `json:"total_quantity"`
	Remaining uint64 `json:"remaining_quantity"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Status    string `json:"status"`
}

func (h *HTTPHandler) postSale(c *gin.Context) {
	var req postSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	kind, ok := parseKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset kind"})
		return
	}

	saleID, err := h.market.Post(c.Request.Context(), req.Seller, kind,
		req.AssetID, req.UnitPrice, req.Quantity, req.StartTime, req.EndTime)
	if err != nil {
		h.logger.Warn("post sale rejected",
			zap.String("seller", req.Seller), zap.Uint64("asset_id", req.AssetID), zap.Error(err))
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sale_id": saleID})
}

func (h *HTTPHandler) buy(c *gin.Context) {
	saleID, ok := saleParam(c)
	if !ok {
		return
	}

	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	receipt, err := h.market.Buy(c.Request.Context(), req.Buyer, saleID,
		req.Quantity, req.Payment, req.RequestID)
	if err != nil {
		h.logger.Warn("purchase rejected",
			zap.Uint64("sale_id", saleID), zap.String("buyer", req.Buyer), zap.Error(err))
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sale_id":  receipt.SaleID,
		"quantity": receipt.Quantity,
		"cost":     receipt.Cost,
		"refund":   receipt.Refund,
	})
}

func (h *HTTPHandler) cancel(c *gin.Context) {
	saleID, ok := saleParam(c)
	if !ok {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.market.Cancel(c.Request.Context(), req.Seller, saleID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale_id": saleID, "status": string(domain.StatusCanceled)})
}

func (h *HTTPHandler) getSale(c *gin.Context) {
	saleID, ok := saleParam(c)
	if !ok {
		return
	}

	sale, err := h.market.Sale(saleID)
	if err != nil {
		h.fail(c, err)
		return
	}
	status, err := h.market.SaleStatus(saleID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toSaleResponse(sale, status))
}

func (h *HTTPHandler) getStatus(c *gin.Context) {
	saleID, ok := saleParam(c)
	if !ok {
		return
	}

	status, err := h.market.SaleStatus(saleID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale_id": saleID, "status": string(status)})
}

func (h *HTTPHandler) listSales(c *gin.Context) {
	sales := h.market.Sales(c.Query("seller"))
	out := make([]saleResponse, 0, len(sales))
	for _, sale := range sales {
		status, err := h.market.SaleStatus(sale.ID)
		if err != nil {
			continue
		}
		out = append(out, toSaleResponse(sale, status))
	}
	c.JSON(http.StatusOK, gin.H{"sales": out})
}

func (h *HTTPHandler) pause(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.market.Pause(req.Caller); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (h *HTTPHandler) unpause(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.market.Unpause(req.Caller); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (h *HTTPHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrSaleNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrNotApproved),
		errors.Is(err, domain.ErrOnlySaleOwner),
		errors.Is(err, domain.ErrOnlyOwner):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrQuantityLow),
		errors.Is(err, domain.ErrQuantityHigh),
		errors.Is(err, domain.ErrPriceZero),
		errors.Is(err, domain.ErrPaymentLow),
		errors.Is(err, domain.ErrPriceOverflow):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrSaleInactive),
		errors.Is(err, service.ErrDuplicateRequest):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrPaused):
		status, message = http.StatusServiceUnavailable, err.Error()
	default:
		h.logger.Error("request failed", zap.Error(err))
	}

	c.JSON(status, gin.H{"error": message})
}

func saleParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return 0, false
	}
	return id, true
}

func parseKind(kind string) (domain.AssetKind, bool) {
	switch domain.AssetKind(kind) {
	case domain.AssetUnique:
		return domain.AssetUnique, true
	case domain.AssetQuantity:
		return domain.AssetQuantity, true
	}
	return "", false
}

func toSaleResponse(sale domain.Sale, status domain.SaleStatus) saleResponse {
	return saleResponse{
		ID:        sale.ID,
		Seller:    sale.Seller,
		Kind:      string(sale.Kind),
		AssetID:   sale.AssetID,
		UnitPrice: sale.UnitPrice,
		Total:     sale.Total,
		Remaining: sale.Remaining,
		StartTime: sale.Start,
		EndTime:   sale.End,
		Status:    string(status),
	}
}
