package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"fotobot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// handleOwnerCommand обрабатывает служебные команды владельца.
// Возвращает true, если команда распознана и обработана.
func (b *Bot) handleOwnerCommand(ctx context.Context, msg *tgbotapi.Message) bool {
	if msg == nil || !msg.IsCommand() || msg.From == nil || !b.isOwner(msg.From.ID) {
		return false
	}

	switch msg.Command() {
	case "stats":
		b.sendStats(ctx, msg.Chat.ID)
		return true
	case "export":
		days := 30
		if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
			if parsed, err := strconv.Atoi(arg); err == nil && parsed > 0 {
				days = parsed
			}
		}
		b.handleExport(ctx, msg.Chat.ID, days)
		return true
	}
	return false
}

// sendStats показывает владельцу сводку заказов за сегодня, неделю и месяц.
func (b *Bot) sendStats(ctx context.Context, chatID int64) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	periods := []struct {
		label string
		start time.Time
	}{
		{"Сегодня", today},
		{"7 дней", today.AddDate(0, 0, -6)},
		{"30 дней", today.AddDate(0, 0, -29)},
	}

	var message strings.Builder
	message.WriteString("📊 *Статистика заказов*\n\n")
	for _, p := range periods {
		message.WriteString(fmt.Sprintf("%s: %s\n", p.label, b.orderSummary(ctx, p.start, tomorrow)))
	}

	msg := tgbotapi.NewMessage(chatID, message.String())
	msg.ParseMode = models.ParseModeMarkdown
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Msg("Failed to send stats message")
	}
}

// orderSummary агрегирует заказы за период: всего, статусы, топ-услуги.
func (b *Bot) orderSummary(ctx context.Context, start, end time.Time) string {
	orders, err := b.journal.GetOrdersByDateRange(ctx, start, end)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("orderSummary error")
		return "ошибка"
	}

	if len(orders) == 0 {
		return "нет данных"
	}

	statusCount := map[string]int{}
	serviceCount := map[string]int{}
	for _, order := range orders {
		statusCount[order.Status]++
		serviceCount[order.ServiceName]++
	}

	statusOrder := []string{models.OrderStatusNew, models.OrderStatusPending, models.OrderStatusPaid}
	statusParts := make([]string, 0, len(statusOrder))
	for _, st := range statusOrder {
		if c := statusCount[st]; c > 0 {
			statusParts = append(statusParts, fmt.Sprintf("%s:%d", statusLabel(st), c))
		}
	}

	type kv struct {
		name  string
		count int
	}
	services := make([]kv, 0, len(serviceCount))
	for name, c := range serviceCount {
		services = append(services, kv{name: name, count: c})
	}
	sort.Slice(services, func(i, j int) bool {
		if services[i].count == services[j].count {
			return services[i].name < services[j].name
		}
		return services[i].count > services[j].count
	})
	if len(services) > 3 {
		services = services[:3]
	}
	serviceParts := make([]string, 0, 3)
	for _, s := range services {
		serviceParts = append(serviceParts, fmt.Sprintf("%s:%d", s.name, s.count))
	}

	return fmt.Sprintf("всего %d | статусы [%s] | топ [%s]",
		len(orders),
		strings.Join(statusParts, ", "),
		strings.Join(serviceParts, ", "),
	)
}

// handleExport выгружает заказы за последние days дней в Excel и
// отправляет файл владельцу.
func (b *Bot) handleExport(ctx context.Context, chatID int64, days int) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1)

	orders, err := b.journal.GetOrdersByDateRange(ctx, start, end)
	if err != nil {
		b.logger.Error().Err(err).Msg("Error getting orders for export")
		b.sendMessage(chatID, "Ошибка при получении данных заказов")
		return
	}

	filePath, err := b.exportOrdersToExcel(orders, start, today)
	if err != nil {
		b.logger.Error().Err(err).Msg("Error exporting orders to Excel")
		b.sendMessage(chatID, "Ошибка при создании файла экспорта")
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		b.logger.Error().Err(err).Str("file_path", filePath).Msg("Error opening export file")
		b.sendMessage(chatID, "Ошибка при открытии файла")
		return
	}
	defer file.Close()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{
		Name:   filepath.Base(filePath),
		Reader: file,
	})
	doc.Caption = fmt.Sprintf("📊 Заказы за последние %d дн.", days)

	if _, err := b.tgService.Send(doc); err != nil {
		b.logger.Error().Err(err).Msg("Error sending export document")
		b.sendMessage(chatID, "Ошибка при отправке файла")
	}
}

// statusLabel переводит статус заказа для владельца.
func statusLabel(status string) string {
	switch status {
	case models.OrderStatusNew:
		return "новый"
	case models.OrderStatusPending:
		return "ждет оплаты"
	case models.OrderStatusPaid:
		return "оплата заявлена"
	default:
		return status
	}
}
