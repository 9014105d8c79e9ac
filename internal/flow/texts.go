package flow

import (
	"fmt"
	"strings"

	"fotobot/internal/catalog"
)

// Тексты диалога. Владелец получает уведомления из internal/notify,
// здесь только то, что видит клиент.
const (
	textWelcome = "Здравствуйте! 👋\n" +
		"Я помогу оформить заказ на услуги фотостудии.\n" +
		"Нажмите кнопку, чтобы начать."

	textChooseService = "Выберите услугу:"

	textAskPhone = "Оставьте номер телефона для связи — напишите его сообщением " +
		"или отправьте свой контакт."

	textPhoneInvalid = "Похоже, это не номер телефона. " +
		"Введите номер ещё раз — в нём должно быть не меньше 10 цифр."

	textAskComment = "Опишите задачу или оставьте пожелания к заказу. " +
		"Если комментарий не нужен, нажмите «Пропустить»."

	textCancelled = "Заказ отменён. Если передумаете — начните заново."

	textOrderFailed = "Не получилось оформить заказ, попробуйте ещё раз чуть позже."

	textUnknownService = "Такой услуги нет, выберите из списка"
	textStaleButton    = "Кнопка устарела"
)

const (
	labelStart   = "🟢 Начать"
	labelCancel  = "❌ Отменить"
	labelSkip    = "Пропустить ➡️"
	labelConfirm = "✅ Подтвердить"
	labelPaid    = "💰 Я оплатил(а)"
)

func startKeyboard() [][]Choice {
	return [][]Choice{{{Label: labelStart, Data: DataStartOrder}}}
}

func cancelRow() []Choice {
	return []Choice{{Label: labelCancel, Data: DataCancel}}
}

// serviceKeyboard рисует по кнопке на услугу, в порядке каталога.
func serviceKeyboard(offerings []catalog.Offering) [][]Choice {
	rows := make([][]Choice, 0, len(offerings)+1)
	for _, o := range offerings {
		rows = append(rows, []Choice{{
			Label: fmt.Sprintf("%s — от %d ₽", o.Name, o.PriceFrom),
			Data:  ServiceDataPrefix + o.ID,
		}})
	}
	return append(rows, cancelRow())
}

func commentKeyboard() [][]Choice {
	return [][]Choice{
		{{Label: labelSkip, Data: DataSkipComment}},
		cancelRow(),
	}
}

func confirmKeyboard() [][]Choice {
	return [][]Choice{
		{{Label: labelConfirm, Data: DataConfirmOrder}},
		cancelRow(),
	}
}

func paidKeyboard() [][]Choice {
	return [][]Choice{
		{{Label: labelPaid, Data: DataPaid}},
		cancelRow(),
	}
}

func textOrderSummary(serviceName string, priceFrom int) string {
	var b strings.Builder
	b.WriteString("Ваш заказ:\n")
	fmt.Fprintf(&b, "Услуга: %s\n", serviceName)
	fmt.Fprintf(&b, "Стоимость: от %d ₽\n\n", priceFrom)
	b.WriteString("Подтверждаете?")
	return b.String()
}

func textPaymentInstructions(orderID int64, priceFrom int, contact, recipient string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Заказ #%d оформлен.\n", orderID)
	fmt.Fprintf(&b, "Для предоплаты переведите от %d ₽", priceFrom)
	if contact != "" {
		fmt.Fprintf(&b, " по реквизитам: %s", contact)
	}
	if recipient != "" {
		fmt.Fprintf(&b, " (получатель: %s)", recipient)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "В комментарии к переводу укажите: Заказ #%d\n\n", orderID)
	b.WriteString("После оплаты нажмите кнопку ниже.")
	return b.String()
}

func textOrderAccepted(orderID int64) string {
	if orderID > 0 {
		return fmt.Sprintf("✅ Заказ #%d принят! Мы свяжемся с вами в ближайшее время.\n"+
			"Хотите оформить ещё один заказ?", orderID)
	}
	return "✅ Заказ принят! Мы свяжемся с вами в ближайшее время.\n" +
		"Хотите оформить ещё один заказ?"
}

func textPaymentThanks(orderID int64) string {
	return fmt.Sprintf("Спасибо! Мы проверим поступление оплаты по заказу #%d "+
		"и свяжемся с вами.\nХотите оформить ещё один заказ?", orderID)
}
