// Package api exposes the service over HTTP with gin.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rongwang/invoice-sheets/internal/export"
	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/record"
	"github.com/rongwang/invoice-sheets/internal/service"
)

// Handler holds the HTTP handlers
type Handler struct {
	service service.Service
	log     *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, log: logger.With("component", "api")}
}

// SetupRoutes registers every route on router. Sheet URLs travel escaped in
// path parameters, so the router matches on the raw path.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.MessageResponse{Status: "success", Message: "ok"})
	})

	router.GET("/auth/url", h.authURL)
	router.POST("/auth/callback", h.authCallback)

	// Anyone holding a valid token may view the shared record
	router.GET("/api/invoices/shared/:invoiceId", h.resolveShareLink)

	auth := AuthMiddleware(h.service)

	api := router.Group("/api", auth)
	{
		api.POST("/auth/logout", h.logout)
		api.DELETE("/account", h.deleteAccount)

		api.POST("/create-sheet", h.createSheet)
		api.GET("/sheets", h.listSheets)
		api.PUT("/sheets/set-default", h.setDefaultSheet)
		api.PUT("/sheets/mark-as-pending", h.markInvoice(models.StatusPending))
		api.PUT("/sheets/mark-as-paid", h.markInvoice(models.StatusPaid))
		api.DELETE("/sheets/:sheetUrl", h.deleteSheet)

		api.POST("/create-business-sheet", h.createBusinessSheet)
		api.GET("/business-details", h.getBusinessDetails)
		api.PUT("/business-details", h.updateBusinessDetails)

		api.GET("/invoices", h.listRecords(models.KindInvoice))
		api.POST("/invoices", h.createRecord(models.KindInvoice))
		api.GET("/invoices/export", h.exportRecords(models.KindInvoice))
		api.GET("/invoices/:id", h.getRecord(models.KindInvoice))
		api.PUT("/update-invoice", h.updateRecord(models.KindInvoice))
		api.PUT("/invoices/status", h.setRecordStatus(models.KindInvoice))
		api.POST("/invoices/shared/create-link", h.createShareLink)

		api.GET("/quotations", h.listRecords(models.KindQuotation))
		api.POST("/quotations", h.createRecord(models.KindQuotation))
		api.GET("/quotations/export", h.exportRecords(models.KindQuotation))
		api.GET("/quotations/:id", h.getRecord(models.KindQuotation))
		api.PUT("/update-quotation", h.updateRecord(models.KindQuotation))
		api.PUT("/quotations/status", h.setRecordStatus(models.KindQuotation))
		api.DELETE("/quotations/bulk-delete", h.bulkDelete(models.KindQuotation))
	}

	invoices := router.Group("/invoices", auth)
	{
		invoices.PUT("/partial-payment", h.partialPayment)
		invoices.DELETE("/bulk-delete", h.bulkDelete(models.KindInvoice))
	}
}

func callerFrom(c *gin.Context) models.Caller {
	return models.Caller{UserID: c.GetString(userIDKey), AccessToken: c.GetString(accessTokenKey)}
}

// respondError maps service errors to HTTP responses. Upstream failures
// win over any cause they wrap.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, models.ErrUpstream):
		code = "UPSTREAM_ERROR"
	case errors.Is(err, models.ErrMissingParameter):
		status, code = http.StatusBadRequest, "MISSING_PARAMETER"
	case errors.Is(err, models.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, models.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, models.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	}

	resp := models.ErrorResponse{Status: "error", Code: code, Message: http.StatusText(status)}
	if status < http.StatusInternalServerError {
		resp.Detail = err.Error()
	} else {
		h.log.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: "Invalid request format",
		Detail:  err.Error(),
	})
}

func (h *Handler) authURL(c *gin.Context) {
	c.JSON(http.StatusOK, models.AuthURLResponse{Status: "success", URL: h.service.AuthURL(c.Query("state"))})
}

func (h *Handler) authCallback(c *gin.Context) {
	var req models.AuthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.HandleCallback(c.Request.Context(), req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), callerFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Status: "success", Message: "Logged out"})
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.service.DeleteAccount(c.Request.Context(), callerFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Status: "success", Message: "Account deleted"})
}

func (h *Handler) createSheet(c *gin.Context) {
	var req models.CreateSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sheet, err := h.service.CreateSheet(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SheetResponse{Status: "success", Sheet: *sheet})
}

func (h *Handler) listSheets(c *gin.Context) {
	list, err := h.service.ListSheets(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SheetsResponse{Status: "success", Sheets: list})
}

func (h *Handler) setDefaultSheet(c *gin.Context) {
	var req models.SheetURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.service.SetDefaultSheet(c.Request.Context(), callerFrom(c), req.SheetURL); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Status: "success", Message: "Default sheet updated"})
}

func (h *Handler) deleteSheet(c *gin.Context) {
	if err := h.service.DeleteSheet(c.Request.Context(), callerFrom(c), c.Param("sheetUrl")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Status: "success", Message: "Sheet removed"})
}

func (h *Handler) markInvoice(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.InvoiceStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		rec, err := h.service.MarkInvoice(c.Request.Context(), callerFrom(c), req.SheetURL, req.InvoiceID, status)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.RecordResponse{Status: "success", Record: *rec})
	}
}

func (h *Handler) createBusinessSheet(c *gin.Context) {
	var profile models.BusinessProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		badRequest(c, err)
		return
	}

	sheet, err := h.service.CreateBusinessSheet(c.Request.Context(), callerFrom(c), profile)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SheetResponse{Status: "success", Sheet: *sheet})
}

func (h *Handler) getBusinessDetails(c *gin.Context) {
	resp, err := h.service.GetBusinessDetails(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) updateBusinessDetails(c *gin.Context) {
	var profile models.BusinessProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.service.UpdateBusinessDetails(c.Request.Context(), callerFrom(c), profile); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Status: "success", Message: "Business details updated"})
}

func (h *Handler) listRecords(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := h.service.ListRecords(c.Request.Context(), callerFrom(c), kind, c.Query("sheetUrl"))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *Handler) getRecord(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.service.GetRecord(c.Request.Context(), callerFrom(c), kind, c.Query("sheetUrl"), c.Param("id"))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.RecordResponse{Status: "success", Record: *rec})
	}
}

func (h *Handler) createRecord(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RecordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		rec, err := h.service.CreateRecord(c.Request.Context(), callerFrom(c), kind, req.SheetURL, req.Record)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.RecordResponse{Status: "success", Record: *rec})
	}
}

func (h *Handler) updateRecord(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RecordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		rec, err := h.service.UpdateRecord(c.Request.Context(), callerFrom(c), kind, req.SheetURL, req.Record)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.RecordResponse{Status: "success", Record: *rec})
	}
}

func (h *Handler) setRecordStatus(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RecordStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		if err := h.service.SetRecordStatus(c.Request.Context(), callerFrom(c), kind, req.SheetURL, req.ID, req.Status); err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.MessageResponse{Status: "success", Message: "Status updated"})
	}
}

func (h *Handler) partialPayment(c *gin.Context) {
	var req models.PartialPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rec, err := h.service.RecordPartialPayment(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RecordResponse{Status: "success", Record: *rec})
}

func (h *Handler) bulkDelete(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BulkDeleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		n, err := h.service.BulkDeleteRecords(c.Request.Context(), callerFrom(c), kind, req.SheetURL, req.IDs)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.BulkDeleteResponse{Status: "success", Deleted: n})
	}
}

// exportRecords streams the tab as a spreadsheet download
func (h *Handler) exportRecords(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := export.ParseFormat(c.Query("format"))
		if err != nil {
			h.respondError(c, err)
			return
		}
		schema, err := record.ForKind(kind)
		if err != nil {
			h.respondError(c, err)
			return
		}

		resp, err := h.service.ListRecords(c.Request.Context(), callerFrom(c), kind, c.Query("sheetUrl"))
		if err != nil {
			h.respondError(c, err)
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+format.Filename(schema)+`"`)
		c.Header("Content-Type", format.ContentType())
		c.Status(http.StatusOK)
		if err := export.Write(c.Writer, format, schema, resp.Records); err != nil {
			h.log.ErrorContext(c.Request.Context(), "export failed", "kind", kind, "error", err)
		}
	}
}

func (h *Handler) createShareLink(c *gin.Context) {
	var req models.ShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.CreateShareLink(c.Request.Context(), callerFrom(c), req.InvoiceID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) resolveShareLink(c *gin.Context) {
	rec, err := h.service.ResolveShareLink(c.Request.Context(), c.Param("invoiceId"), c.Query("token"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RecordResponse{Status: "success", Record: *rec})
}
