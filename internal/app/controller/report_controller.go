package controller

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sokocart/sokocart-backend/internal/app/service"
	"github.com/sokocart/sokocart-backend/internal/errors"
	"github.com/sokocart/sokocart-backend/internal/middleware"
)

type ReportController struct {
	reportService service.ReportService
}

func NewReportController(reportService service.ReportService) *ReportController {
	return &ReportController{
		reportService: reportService,
	}
}

// ExportCouponUsage builds the coupon redemption workbook and uploads
// it to object storage (admin)
// POST /api/v1/admin/reports/coupon-usage
func (ctrl *ReportController) ExportCouponUsage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	url, err := ctrl.reportService.ExportCouponUsageReport(c.Request.Context())
	if err != nil {
		if stderrors.Is(err, service.ErrNoReportStorage) {
			errors.RespondWithError(c, http.StatusServiceUnavailable, errors.InternalStorageError, "Report storage is not configured")
			return
		}
		log.Error("Failed to export coupon usage report", err, nil)
		errors.InternalError(c, "")
		return
	}

	log.Info("Coupon usage report exported", map[string]interface{}{
		"url": url,
	})

	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// DownloadCouponUsage streams the workbook directly (admin)
// GET /api/v1/admin/reports/coupon-usage
func (ctrl *ReportController) DownloadCouponUsage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	data, err := ctrl.reportService.BuildCouponUsageWorkbook()
	if err != nil {
		log.Error("Failed to build coupon usage report", err, nil)
		errors.InternalError(c, "")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="coupon-usage.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
