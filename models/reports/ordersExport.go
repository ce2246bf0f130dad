package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pacefoods/crm_backend/config"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type OrderExportRow struct {
	OrderNo         string          `json:"order_no"`
	Status          string          `json:"status"`
	BuyerName       string          `json:"buyer_name"`
	SellerName      string          `json:"seller_name"`
	QboDocNumber    *string         `json:"qbo_doc_number"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	CommissionTotal decimal.Decimal `json:"commission_total"`
	CreatedAt       time.Time       `json:"created_at"`
}

func getOrderExportRows(ctx context.Context, fromDate, toDate time.Time, status string) ([]*OrderExportRow, error) {
	sql := `
SELECT
    orders.order_no,
    orders.status,
    buyers.name AS buyer_name,
    sellers.name AS seller_name,
    orders.qbo_doc_number,
    orders.subtotal,
    orders.commission_total,
    orders.created_at
FROM orders
    LEFT JOIN accounts AS buyers ON buyers.id = orders.buyer_id
    LEFT JOIN accounts AS sellers ON sellers.id = orders.seller_id
WHERE orders.created_at BETWEEN ? AND ?
`
	args := []interface{}{fromDate, toDate}
	if status != "" {
		sql += " AND orders.status = ?"
		args = append(args, status)
	}
	sql += " ORDER BY orders.created_at"

	var rows []*OrderExportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type CommissionByBuyerRow struct {
	BuyerName       string          `json:"buyer_name"`
	OrderCount      int             `json:"order_count"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}

func getCommissionByBuyerRows(ctx context.Context, fromDate, toDate time.Time) ([]*CommissionByBuyerRow, error) {
	sql := `
SELECT
    buyers.name AS buyer_name,
    COUNT(orders.id) AS order_count,
    SUM(orders.subtotal) AS total_sales,
    SUM(orders.commission_total) AS total_commission
FROM orders
    LEFT JOIN accounts AS buyers ON buyers.id = orders.buyer_id
WHERE orders.created_at BETWEEN ? AND ?
    AND orders.status IN ('posted_to_qb', 'paid')
GROUP BY orders.buyer_id, buyers.name
ORDER BY total_commission DESC
`
	var rows []*CommissionByBuyerRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, fromDate, toDate).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	from := c.Query("from")
	to := c.Query("to")

	fromDate := time.Now().AddDate(0, -1, 0)
	toDate := time.Now()
	var err error
	if from != "" {
		fromDate, err = time.Parse("2006-01-02", from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %s", from)
		}
	}
	if to != "" {
		toDate, err = time.Parse("2006-01-02", to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %s", to)
		}
		toDate = toDate.Add(24*time.Hour - time.Second)
	}
	return fromDate, toDate, nil
}

// ExportOrdersHandler streams an xlsx of orders in the requested date range.
func ExportOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fromDate, toDate, err := parseDateRange(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rows, err := getOrderExportRows(c.Request.Context(), fromDate, toDate, c.Query("status"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		f := excelize.NewFile()
		sheet := "Orders"
		if _, err := f.NewSheet(sheet); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		f.DeleteSheet("Sheet1")

		headers := []string{"Order No", "Status", "Buyer", "Seller", "QB Doc", "Subtotal", "Commission", "Created"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		for i, row := range rows {
			rowNo := i + 2
			f.SetCellValue(sheet, "A"+fmt.Sprint(rowNo), row.OrderNo)
			f.SetCellValue(sheet, "B"+fmt.Sprint(rowNo), row.Status)
			f.SetCellValue(sheet, "C"+fmt.Sprint(rowNo), row.BuyerName)
			f.SetCellValue(sheet, "D"+fmt.Sprint(rowNo), row.SellerName)
			if row.QboDocNumber != nil {
				f.SetCellValue(sheet, "E"+fmt.Sprint(rowNo), *row.QboDocNumber)
			}
			f.SetCellValue(sheet, "F"+fmt.Sprint(rowNo), row.Subtotal.InexactFloat64())
			f.SetCellValue(sheet, "G"+fmt.Sprint(rowNo), row.CommissionTotal.InexactFloat64())
			f.SetCellValue(sheet, "H"+fmt.Sprint(rowNo), row.CreatedAt.Format("2006-01-02"))
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=orders.xlsx")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
		}
	}
}

// CommissionByBuyerHandler returns commission totals grouped by buyer. Pass
// format=xlsx for a spreadsheet.
func CommissionByBuyerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fromDate, toDate, err := parseDateRange(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rows, err := getCommissionByBuyerRows(c.Request.Context(), fromDate, toDate)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if c.Query("format") != "xlsx" {
			c.JSON(http.StatusOK, rows)
			return
		}

		f := excelize.NewFile()
		sheet := "Commission"
		if _, err := f.NewSheet(sheet); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		f.DeleteSheet("Sheet1")

		f.SetCellValue(sheet, "A1", "Buyer")
		f.SetCellValue(sheet, "B1", "Orders")
		f.SetCellValue(sheet, "C1", "Sales")
		f.SetCellValue(sheet, "D1", "Commission")
		for i, row := range rows {
			rowNo := i + 2
			f.SetCellValue(sheet, "A"+fmt.Sprint(rowNo), row.BuyerName)
			f.SetCellValue(sheet, "B"+fmt.Sprint(rowNo), row.OrderCount)
			f.SetCellValue(sheet, "C"+fmt.Sprint(rowNo), row.TotalSales.InexactFloat64())
			f.SetCellValue(sheet, "D"+fmt.Sprint(rowNo), row.TotalCommission.InexactFloat64())
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=commission-by-buyer.xlsx")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
		}
	}
}
