package flow

import (
	"strings"
	"unicode"

	"fotobot/internal/models"
)

// ValidatePhone принимает номер в любом написании: считаются только
// цифры, их должно быть не меньше models.MinPhoneDigits. Возвращается
// исходный текст без крайних пробелов — владельцу удобнее видеть номер
// так, как его написал клиент.
func ValidatePhone(raw string) (string, error) {
	digits := 0
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < models.MinPhoneDigits {
		return "", ErrInvalidPhone
	}
	return strings.TrimSpace(raw), nil
}
