package services

import (
	"strings"
	"time"

	"github.com/goodsign/monday"
)

const (
	productionDays      = 3
	defaultDeliveryDays = 5
)

// Courier lead time in days for the cities we ship to most.
var deliveryDays = map[string]int{
	"москва":          1,
	"санкт-петербург": 2,
	"екатеринбург":    3,
	"новосибирск":     4,
	"казань":          3,
	"нижний новгород": 2,
	"челябинск":       3,
	"самара":          3,
	"омск":            4,
	"ростов-на-дону":  3,
	"уфа":             3,
	"красноярск":      5,
	"воронеж":         2,
	"пермь":           3,
	"волгоград":       3,
}

// DeliveryDays returns the courier lead time for a city, ignoring case and
// surrounding spaces. Unknown cities get the default.
func DeliveryDays(city string) int {
	if d, ok := deliveryDays[strings.ToLower(strings.TrimSpace(city))]; ok {
		return d
	}
	return defaultDeliveryDays
}

// EstimateDelivery adds the courier lead time and the production buffer to now.
func EstimateDelivery(city string, now time.Time) time.Time {
	return now.AddDate(0, 0, DeliveryDays(city)+productionDays)
}

// FormatDeliveryDate renders t as a Russian long date with the weekday.
func FormatDeliveryDate(t time.Time) string {
	return monday.Format(t, "Monday, 2 January 2006 г.", monday.LocaleRuRU)
}
