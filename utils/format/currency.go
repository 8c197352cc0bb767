package format

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultCurrency 默认币种
const DefaultCurrency = "USD"

var printer = message.NewPrinter(language.AmericanEnglish)

// ParseCurrency 校验 ISO 4217 币种代码，空串返回默认币种
func ParseCurrency(code string) (currency.Unit, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("invalid currency code %q: %w", code, err)
	}
	return unit, nil
}

// FormatCurrency 以 en-US 习惯格式化金额：千分位分组，两位小数，币种符号前置
func FormatCurrency(amount float64, code string) (string, error) {
	unit, err := ParseCurrency(code)
	if err != nil {
		return "", err
	}

	symbol := printer.Sprint(currency.Symbol(unit))
	value := printer.Sprint(number.Decimal(amount,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
	return symbol + value, nil
}

// MustFormatCurrency 币种非法时退回默认币种
func MustFormatCurrency(amount float64, code string) string {
	s, err := FormatCurrency(amount, code)
	if err != nil {
		s, _ = FormatCurrency(amount, DefaultCurrency)
	}
	return s
}
