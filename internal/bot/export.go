package bot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fotobot/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Заказы"

// exportOrdersToExcel создает Excel файл с заказами за период.
func (b *Bot) exportOrdersToExcel(orders []*models.Order, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(b.config.Exports.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(exportSheetName, "A1", fmt.Sprintf("Заказы: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))
	_ = f.MergeCell(exportSheetName, "A1", "H1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(exportSheetName, "A1", "A1", titleStyle)

	headers := []string{"№", "Дата", "Пользователь", "Telegram ID", "Услуга", "Стоимость от, ₽", "Телефон", "Комментарий", "Статус"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(exportSheetName, cell, header)
		_ = f.SetCellStyle(exportSheetName, cell, cell, headerStyle)
	}

	for i, order := range orders {
		row := i + 3
		username := order.Username
		if username == "" {
			username = models.CommentPlaceholder
		}

		values := []interface{}{
			order.ID,
			order.CreatedAt.Format("02.01.2006 15:04"),
			username,
			order.UserID,
			order.ServiceName,
			order.PriceFrom,
			order.Phone,
			order.Comment,
			statusLabel(order.Status),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(exportSheetName, cell, value)
		}
	}

	_ = f.SetColWidth(exportSheetName, "A", "A", 8)
	_ = f.SetColWidth(exportSheetName, "B", "B", 18)
	_ = f.SetColWidth(exportSheetName, "C", "E", 22)
	_ = f.SetColWidth(exportSheetName, "F", "F", 15)
	_ = f.SetColWidth(exportSheetName, "G", "I", 20)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("orders_export_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(b.config.Exports.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	b.logger.Info().Str("file_path", filePath).Int("orders", len(orders)).Msg("Excel file created")
	return filePath, nil
}
