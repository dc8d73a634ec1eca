package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinDisplayNameLength = 2
	MaxDisplayNameLength = 100
	MinRequestDetailsLength = 10
	MaxRequestDetailsLength = 5000
	MinPricingTitleLength = 3
	MaxPricingTitleLength = 200
	MaxPricingDescriptionLength = 2000
	MinReasonLength = 5
	MaxReasonLength = 2000
	MaxBioLength = 1000
	MaxOccasionLength = 200
	MaxForWhomLength = 200
	MaxPronunciationLength = 500
	MinPrice = 0.0
	MaxPrice = 1000000.0 // миллион
	MaxAudioURLLength = 500
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	// Базовая проверка формата
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	// Проверка на валидные символы в локальной части
	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	// Проверка на валидные символы в доменной части
	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	// Проверка длины
	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	// Проверка на допустимые символы (только буквы, цифры и подчеркивание)
	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	// Проверка, что не начинается с цифры
	if len(username) > 0 && unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateDisplayName проверяет отображаемое имя.
func ValidateDisplayName(displayName string) error {
	if displayName == "" {
		return fmt.Errorf("отображаемое имя обязательно")
	}

	displayName = strings.TrimSpace(displayName)

	// Проверка длины
	if err := ValidateLength("отображаемое имя", displayName, MinDisplayNameLength, MaxDisplayNameLength); err != nil {
		return err
	}

	// Проверка на недопустимые символы (только буквы, цифры, пробелы и некоторые спецсимволы)
	displayNameRegex := regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9\s\-_.,!?()]+$`)
	if !displayNameRegex.MatchString(displayName) {
		return fmt.Errorf("отображаемое имя содержит недопустимые символы")
	}

	return nil
}

// ValidateRequestDetails проверяет текст пожеланий к записи.
func ValidateRequestDetails(details string) error {
	if details == "" {
		return fmt.Errorf("описание заявки обязательно")
	}

	details = strings.TrimSpace(details)

	if err := ValidateLength("описание заявки", details, MinRequestDetailsLength, MaxRequestDetailsLength); err != nil {
		return err
	}

	return nil
}

// ValidatePricingTitle проверяет название тарифа.
func ValidatePricingTitle(title string) error {
	if title == "" {
		return fmt.Errorf("название тарифа обязательно")
	}

	title = strings.TrimSpace(title)

	if err := ValidateLength("название тарифа", title, MinPricingTitleLength, MaxPricingTitleLength); err != nil {
		return err
	}

	return nil
}

// ValidatePricingDescription проверяет описание тарифа.
func ValidatePricingDescription(description string) error {
	if description != "" {
		desc := strings.TrimSpace(description)
		if err := ValidateLength("описание тарифа", desc, 0, MaxPricingDescriptionLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePrice проверяет цену тарифа.
func ValidatePrice(price float64) error {
	if price <= MinPrice {
		return fmt.Errorf("цена должна быть положительной")
	}
	if price > MaxPrice {
		return fmt.Errorf("цена не может превышать %.0f", MaxPrice)
	}
	return nil
}

// ValidateReason проверяет причину отклонения или спора.
func ValidateReason(fieldName, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%s обязательна", fieldName)
	}

	reason = strings.TrimSpace(reason)

	if err := ValidateLength(fieldName, reason, MinReasonLength, MaxReasonLength); err != nil {
		return err
	}

	return nil
}

// ValidateBio проверяет биографию.
func ValidateBio(bio *string) error {
	if bio != nil && *bio != "" {
		bioStr := strings.TrimSpace(*bio)
		if err := ValidateLength("биография", bioStr, 0, MaxBioLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOptionalField проверяет необязательное короткое поле заявки.
func ValidateOptionalField(fieldName string, value *string, max int) error {
	if value != nil && *value != "" {
		v := strings.TrimSpace(*value)
		if err := ValidateLength(fieldName, v, 0, max); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAudioURL проверяет ссылку на готовую запись.
func ValidateAudioURL(link string) error {
	if link == "" {
		return fmt.Errorf("ссылка на запись обязательна")
	}

	link = strings.TrimSpace(link)

	if err := ValidateLength("ссылка на запись", link, 0, MaxAudioURLLength); err != nil {
		return err
	}

	parsedURL, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("некорректный формат URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("ссылка должна начинаться с http:// или https://")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("ссылка должна содержать доменное имя")
	}

	return nil
}
