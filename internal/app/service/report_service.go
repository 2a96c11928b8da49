package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

var ErrNoReportStorage = errors.New("report storage is not configured")

// ReportUploader stores a generated report and returns its public URL.
// The S3 storage layer satisfies this; tests substitute a fake.
type ReportUploader interface {
	UploadReport(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type ReportService interface {
	BuildCouponUsageWorkbook() ([]byte, error)
	ExportCouponUsageReport(ctx context.Context) (string, error)
}

type reportService struct {
	couponRepo repository.CouponRepository
	uploader   ReportUploader
}

func NewReportService(couponRepo repository.CouponRepository, uploader ReportUploader) ReportService {
	return &reportService{
		couponRepo: couponRepo,
		uploader:   uploader,
	}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BuildCouponUsageWorkbook renders the full redemption audit as an xlsx
// workbook, one row per CouponUsage.
func (s *reportService) BuildCouponUsageWorkbook() ([]byte, error) {
	usages, err := s.couponRepo.FindAllUsages()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Coupon Redemptions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Coupon Code", "Kind", "User Email", "Discount", "Redeemed At"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, usage := range usages {
		values := []interface{}{
			usage.Coupon.Code,
			string(usage.Coupon.Kind),
			usage.User.Email,
			usage.DiscountAmount.StringFixed(2),
			usage.UsedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	logger.Info("Coupon usage workbook built", map[string]interface{}{
		"rows": len(usages),
	})
	return buf.Bytes(), nil
}

// ExportCouponUsageReport builds the workbook and uploads it, returning
// the URL of the stored file.
func (s *reportService) ExportCouponUsageReport(ctx context.Context) (string, error) {
	if s.uploader == nil {
		return "", ErrNoReportStorage
	}

	body, err := s.BuildCouponUsageWorkbook()
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("reports/coupon-usage-%s.xlsx", time.Now().Format("20060102-150405"))
	url, err := s.uploader.UploadReport(ctx, key, body, xlsxContentType)
	if err != nil {
		logger.Error("Failed to upload coupon usage report", err, map[string]interface{}{
			"key": key,
		})
		return "", err
	}

	logger.Info("Coupon usage report exported", map[string]interface{}{
		"key": key,
		"url": url,
	})
	return url, nil
}
