package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Keys read from the free-form registration payload.
const (
	FieldSession   = "sesi"
	FieldCategory  = "category"
	FieldQuantity  = "quantity"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldWhatsapp  = "whatsapp"
	FieldFullName  = "fullName"
	FieldName      = "name"
	FieldBandName  = "bandName"
	FieldGroupName = "groupName"
)

const UnspecifiedName = "Unspecified"

// DetailString returns the trimmed string form of data[key], or "" when absent.
func DetailString(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// EffectiveCategoryLabel is "{sesi} - {category}" when both are present,
// otherwise whichever one is present, otherwise the sub-event name.
func EffectiveCategoryLabel(data map[string]interface{}, subEventName string) string {
	sesi := DetailString(data, FieldSession)
	category := DetailString(data, FieldCategory)
	switch {
	case sesi != "" && category != "":
		return sesi + " - " + category
	case category != "":
		return category
	case sesi != "":
		return sesi
	default:
		return strings.TrimSpace(subEventName)
	}
}

// MaxQuantity is the most seats or tickets one registration item may hold.
const MaxQuantity = 100

// RequestedQuantity reads the requested quantity. Missing, non-numeric or
// non-positive values count as 1. ok is false when the value is above
// MaxQuantity; n is then MaxQuantity.
func RequestedQuantity(data map[string]interface{}) (n int, ok bool) {
	raw := DetailString(data, FieldQuantity)
	v, err := strconv.ParseInt(raw, 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
		return MaxQuantity, false
	case err != nil || v < 1:
		return 1, true
	case v > MaxQuantity:
		return MaxQuantity, false
	}
	return int(v), true
}

// ParseQuantity is RequestedQuantity clamped to [1, MaxQuantity].
func ParseQuantity(data map[string]interface{}) int {
	n, _ := RequestedQuantity(data)
	return n
}

// ApplicantName picks the first non-empty of full name, name, band or group
// name.
func ApplicantName(data map[string]interface{}) string {
	for _, key := range []string{FieldFullName, FieldName, FieldBandName, FieldGroupName} {
		if v := DetailString(data, key); v != "" {
			return v
		}
	}
	return UnspecifiedName
}

func ApplicantPhone(data map[string]interface{}) string {
	if v := DetailString(data, FieldPhone); v != "" {
		return v
	}
	return DetailString(data, FieldWhatsapp)
}
