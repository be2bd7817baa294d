package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveCategoryLabel(t *testing.T) {
	cases := []struct {
		name     string
		data     map[string]interface{}
		subEvent string
		want     string
	}{
		{"session and category", map[string]interface{}{"sesi": "Sesi 1", "category": "VIP"}, "Konser", "Sesi 1 - VIP"},
		{"category only", map[string]interface{}{"category": "SMA"}, "Lomba Foto", "SMA"},
		{"session only", map[string]interface{}{"sesi": "Sesi 2"}, "Konser", "Sesi 2"},
		{"falls back to sub event", map[string]interface{}{}, "Lomba Foto", "Lomba Foto"},
		{"blank values ignored", map[string]interface{}{"sesi": "  ", "category": ""}, "Monolog", "Monolog"},
		{"nil data", nil, "Monolog", "Monolog"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EffectiveCategoryLabel(tc.data, tc.subEvent))
		})
	}
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		name   string
		data   map[string]interface{}
		want   int
		within bool
	}{
		{"missing", nil, 1, true},
		{"non-numeric", map[string]interface{}{"quantity": "abc"}, 1, true},
		{"zero", map[string]interface{}{"quantity": "0"}, 1, true},
		{"negative", map[string]interface{}{"quantity": -3.0}, 1, true},
		{"fraction", map[string]interface{}{"quantity": "2.5"}, 1, true},
		{"string", map[string]interface{}{"quantity": "3"}, 3, true},
		{"json number", map[string]interface{}{"quantity": 4.0}, 4, true},
		{"at maximum", map[string]interface{}{"quantity": "100"}, MaxQuantity, true},
		{"above maximum", map[string]interface{}{"quantity": "101"}, MaxQuantity, false},
		{"max int64", map[string]interface{}{"quantity": "9223372036854775807"}, MaxQuantity, false},
		{"beyond int64", map[string]interface{}{"quantity": "99999999999999999999"}, MaxQuantity, false},
		{"huge float", map[string]interface{}{"quantity": 1e20}, MaxQuantity, false},
		{"very negative", map[string]interface{}{"quantity": "-99999999999999999999"}, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, ok := RequestedQuantity(tc.data)
			assert.Equal(t, tc.want, n)
			assert.Equal(t, tc.within, ok)
			assert.Equal(t, tc.want, ParseQuantity(tc.data))
		})
	}
}

func TestApplicantName(t *testing.T) {
	assert.Equal(t, "Budi", ApplicantName(map[string]interface{}{"fullName": "Budi", "name": "B"}))
	assert.Equal(t, "The Band", ApplicantName(map[string]interface{}{"bandName": "The Band"}))
	assert.Equal(t, "Paduan Suara", ApplicantName(map[string]interface{}{"groupName": "Paduan Suara"}))
	assert.Equal(t, UnspecifiedName, ApplicantName(map[string]interface{}{}))
}

func TestApplicantPhone(t *testing.T) {
	assert.Equal(t, "0812", ApplicantPhone(map[string]interface{}{"phone": "0812", "whatsapp": "0813"}))
	assert.Equal(t, "0813", ApplicantPhone(map[string]interface{}{"whatsapp": "0813"}))
	assert.Empty(t, ApplicantPhone(nil))
}

func TestParseRegistrationStatus(t *testing.T) {
	s, ok := ParseRegistrationStatus("verified")
	assert.True(t, ok)
	assert.Equal(t, StatusVerified, s)

	_, ok = ParseRegistrationStatus("PAID")
	assert.False(t, ok)
}
