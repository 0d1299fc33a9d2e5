package validation

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

// Константы валидации
const (
	MaxRequirementsLength   = 5000
	MaxReasonLength         = 500
	MaxDescriptionLength    = 5000
	MaxResponseLength       = 5000
	MaxNotesLength          = 2000
	MaxURLLength            = 500
	MaxEvidenceCount        = 10
	MaxQuantity             = 1000
	MaxPayoutMethodLength   = 50
	MaxPayoutDetailsLength  = 500
	MaxProofScreenshotCount = 10
)

// MaxTopUp - верхняя граница одного пополнения.
var MaxTopUp = decimal.NewFromInt(1_000_000)

func invalid(format string, args ...interface{}) error {
	return apperror.Newf(apperror.ErrCodeValidation, format, args...)
}

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return invalid("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return invalid("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateRequired проверяет, что строка не пустая, и ограничивает длину.
func ValidateRequired(fieldName, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s не может быть пустым", fieldName)
	}
	return ValidateLength(fieldName, strings.TrimSpace(value), 0, max)
}

// ValidateURL проверяет ссылку: только http(s) и непустой хост.
func ValidateURL(fieldName, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return invalid("%s обязательна", fieldName)
	}
	if err := ValidateLength(fieldName, link, 0, MaxURLLength); err != nil {
		return err
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return invalid("%s: некорректный формат URL", fieldName)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return invalid("%s должна начинаться с http:// или https://", fieldName)
	}
	if parsed.Host == "" {
		return invalid("%s должна содержать доменное имя", fieldName)
	}
	return nil
}

// ValidateOptionalURL - как ValidateURL, но пустое значение допустимо.
func ValidateOptionalURL(fieldName string, link *string) error {
	if link == nil || strings.TrimSpace(*link) == "" {
		return nil
	}
	return ValidateURL(fieldName, *link)
}

// ValidateEvidence проверяет список ссылок на доказательства.
func ValidateEvidence(urls []string) error {
	if len(urls) > MaxEvidenceCount {
		return invalid("можно приложить не более %d доказательств", MaxEvidenceCount)
	}
	for _, u := range urls {
		if err := ValidateURL("ссылка на доказательство", u); err != nil {
			return err
		}
	}
	return nil
}

// ValidateQuantity проверяет количество единиц услуги в заказе.
func ValidateQuantity(q int) error {
	if q < 1 || q > MaxQuantity {
		return invalid("количество должно быть от 1 до %d", MaxQuantity)
	}
	return nil
}

// ParseAmount разбирает денежную сумму из строки: положительная, не более двух знаков после запятой.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, invalid("некорректная сумма %q", raw)
	}
	return valueobject.NewPositiveAmount(amount)
}

// ParseTopUpAmount - ParseAmount с верхней границей пополнения.
func ParseTopUpAmount(raw string) (decimal.Decimal, error) {
	amount, err := ParseAmount(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.GreaterThan(MaxTopUp) {
		return decimal.Zero, invalid("сумма пополнения не может превышать %s", MaxTopUp.String())
	}
	return amount, nil
}

// ParsePercentage разбирает процент возврата, если он передан.
func ParsePercentage(raw *string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	p, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, invalid("некорректный процент возврата %q", *raw)
	}
	p, err = valueobject.NewPercentage(p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
