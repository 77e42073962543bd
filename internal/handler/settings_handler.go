package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"purchaseledger/internal/auditlog"
	"purchaseledger/internal/service"
	"purchaseledger/pkg/response"
	"purchaseledger/pkg/tabular"

	"github.com/gin-gonic/gin"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type SettingsHandler struct {
	catalogService  service.CatalogService
	transferService service.TransferService
	backupService   service.BackupService
	auditLog        *auditlog.Writer
	guard           gin.HandlerFunc
}

// NewSettingsHandler wires the backup and data-transfer routes. guard runs in
// front of every route; pass nil when settings are open.
func NewSettingsHandler(
	catalogService service.CatalogService,
	transferService service.TransferService,
	backupService service.BackupService,
	auditLog *auditlog.Writer,
	guard gin.HandlerFunc,
) *SettingsHandler {
	if guard == nil {
		guard = func(c *gin.Context) { c.Next() }
	}
	return &SettingsHandler{
		catalogService:  catalogService,
		transferService: transferService,
		backupService:   backupService,
		auditLog:        auditLog,
		guard:           guard,
	}
}

func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	export := router.Group("/api/export", h.guard)
	{
		export.GET("/purchases", h.ExportPurchases)
		export.GET("/catalog-items", h.ExportCatalog)
	}

	settings := router.Group("/api/settings", h.guard)
	{
		settings.POST("/upload-catalog", h.UploadCatalog)
		settings.POST("/upload-history", h.UploadHistory)
		settings.GET("/download-db", h.DownloadDB)
		settings.POST("/upload-db", h.UploadDB)
		settings.GET("/download-log", h.DownloadLog)
		settings.POST("/purge-data", h.Purge)
	}
}

func writeTable(c *gin.Context, t tabular.Table, baseName string) {
	format := c.DefaultQuery("format", formatCSV)

	var buf bytes.Buffer
	var contentType string
	switch format {
	case formatCSV:
		if err := tabular.WriteCSV(&buf, t); err != nil {
			respondError(c, err)
			return
		}
		contentType = "text/csv; charset=utf-8"
	case formatXLSX:
		if err := tabular.WriteXLSX(&buf, t); err != nil {
			respondError(c, err)
			return
		}
		contentType = xlsxContentType
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "format must be csv or xlsx"))
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", baseName, time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// formFile opens the multipart "file" field. On failure it writes the 400
// response and returns nil.
func formFile(c *gin.Context) io.ReadCloser {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "No file uploaded"))
		return nil
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Cannot read uploaded file"))
		return nil
	}
	return f
}

// ExportPurchases downloads confirmed purchase lines
// @Summary      Export purchases
// @Tags         settings
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200  {file}  file
// @Security     BearerAuth
// @Router       /api/export/purchases [get]
func (h *SettingsHandler) ExportPurchases(c *gin.Context) {
	table, err := h.transferService.ExportPurchases(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	writeTable(c, table, "compras")
}

// ExportCatalog downloads the catalog in the point-of-sale import layout
// @Summary      Export catalog
// @Tags         settings
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200  {file}  file
// @Security     BearerAuth
// @Router       /api/export/catalog-items [get]
func (h *SettingsHandler) ExportCatalog(c *gin.Context) {
	table, err := h.transferService.ExportCatalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	writeTable(c, table, "catalogo")
}

// UploadCatalog seeds the catalog from a CSV file
// @Summary      Seed catalog
// @Tags         settings
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Catalog CSV"
// @Success      200  {object}  response.Response{data=service.SeedResult}
// @Failure      400  {object}  response.Response
// @Security     BearerAuth
// @Router       /api/settings/upload-catalog [post]
func (h *SettingsHandler) UploadCatalog(c *gin.Context) {
	f := formFile(c)
	if f == nil {
		return
	}
	defer f.Close()

	result, err := h.catalogService.SeedCatalog(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UploadHistory replays an exported purchase history CSV
// @Summary      Import purchase history
// @Tags         settings
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "History CSV"
// @Success      200  {object}  response.Response{data=service.ImportResult}
// @Failure      400  {object}  response.Response
// @Security     BearerAuth
// @Router       /api/settings/upload-history [post]
func (h *SettingsHandler) UploadHistory(c *gin.Context) {
	f := formFile(c)
	if f == nil {
		return
	}
	defer f.Close()

	result, err := h.transferService.ImportHistory(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DownloadDB streams a snapshot of the SQLite database
// @Summary      Download database
// @Tags         settings
// @Produce      application/octet-stream
// @Success      200  {file}  file
// @Failure      400  {object}  response.Response
// @Security     BearerAuth
// @Router       /api/settings/download-db [get]
func (h *SettingsHandler) DownloadDB(c *gin.Context) {
	// Buffered so a failed snapshot can still answer with a JSON error.
	var buf bytes.Buffer
	if err := h.backupService.Snapshot(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("purchase_app_%s.db", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/octet-stream", buf.Bytes())
}

// UploadDB loads an uploaded SQLite file into the live database
// @Summary      Restore database
// @Tags         settings
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "SQLite database"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Security     BearerAuth
// @Router       /api/settings/upload-db [post]
func (h *SettingsHandler) UploadDB(c *gin.Context) {
	f := formFile(c)
	if f == nil {
		return
	}
	defer f.Close()

	if err := h.backupService.Restore(c.Request.Context(), f); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Database restored"}))
}

// DownloadLog returns the append-only audit CSV
// @Summary      Download audit log
// @Tags         settings
// @Produce      text/csv
// @Success      200  {file}  file
// @Failure      404  {object}  response.Response
// @Security     BearerAuth
// @Router       /api/settings/download-log [get]
func (h *SettingsHandler) DownloadLog(c *gin.Context) {
	f, err := h.auditLog.Open()
	if errors.Is(err, auditlog.ErrNoLog) {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Audit log not found"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(c, err)
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "text/csv; charset=utf-8", f, map[string]string{
		"Content-Disposition": "attachment; filename=purchase_history_log.csv",
	})
}

// Purge deletes transactional data, or everything with full_wipe
// @Summary      Purge data
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        payload  body  service.PurgeRequest  true  "transactions_only or full_wipe"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Security     BearerAuth
// @Router       /api/settings/purge-data [post]
func (h *SettingsHandler) Purge(c *gin.Context) {
	var req service.PurgeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.backupService.Purge(c.Request.Context(), req.Mode); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Data purged", "mode": req.Mode}))
}
