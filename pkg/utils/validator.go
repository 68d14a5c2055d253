package utils

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	controlChars   = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	contractNumber = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N}\-/._ ]*$`)
)

// ValidateContractNumber checks that a contract number is present and printable
func ValidateContractNumber(number string) error {
	if strings.TrimSpace(number) == "" {
		return fmt.Errorf("contract number is required")
	}
	if !contractNumber.MatchString(number) {
		return fmt.Errorf("invalid contract number format: %q", number)
	}
	return nil
}

// ValidateArea validates a floor area in square metres
func ValidateArea(area float64) error {
	if math.IsNaN(area) || math.IsInf(area, 0) || area <= 0 {
		return fmt.Errorf("area must be positive: %.2f", area)
	}
	return nil
}

// RoundMoney rounds an amount to two decimal places
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
