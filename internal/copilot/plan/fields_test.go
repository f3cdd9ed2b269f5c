package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAffirmative(t *testing.T) {
	for _, text := range []string{"sim", "Sim", " SIM ", "confirmo", "pode", "ok", "sim!"} {
		assert.True(t, IsAffirmative(text), text)
	}
	for _, text := range []string{"não", "talvez", "sim, mas troca o valor", ""} {
		assert.False(t, IsAffirmative(text), text)
	}
}

func TestIsNegative(t *testing.T) {
	for _, text := range []string{"não", "nao", "Não.", "cancela", "cancelar"} {
		assert.True(t, IsNegative(text), text)
	}
	for _, text := range []string{"sim", "não sei", ""} {
		assert.False(t, IsNegative(text), text)
	}
}

func TestParseFieldsKeyValuePairs(t *testing.T) {
	declared := map[string]bool{"client_name": true, "items": true}

	got := ParseFields("client_name: João Silva\nitems: troca de fiação", []string{"client_name", "items"}, declared)
	assert.Equal(t, "João Silva", got["client_name"])
	assert.Equal(t, "troca de fiação", got["items"])
}

func TestParseFieldsSpacedKeysNormalize(t *testing.T) {
	declared := map[string]bool{"client_name": true}

	got := ParseFields("Client Name: Maria", []string{"client_name"}, declared)
	assert.Equal(t, "Maria", got["client_name"])
}

func TestParseFieldsBareUtteranceFillsFirstMissing(t *testing.T) {
	declared := map[string]bool{"client_name": true, "items": true}

	got := ParseFields("João Silva", []string{"client_name", "items"}, declared)
	assert.Equal(t, "João Silva", got["client_name"])
	assert.NotContains(t, got, "items")
}

func TestParseFieldsIgnoresUndeclaredKeys(t *testing.T) {
	declared := map[string]bool{"items": true}

	got := ParseFields("hack: payload; items: algo", []string{"items"}, declared)
	assert.Equal(t, "algo", got["items"])
	assert.NotContains(t, got, "hack")
}

func TestParseFieldsEmptyUtterance(t *testing.T) {
	got := ParseFields("   ", []string{"items"}, map[string]bool{"items": true})
	assert.Empty(t, got)
}

func TestParseAmountCents(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{"150", 15000, true},
		{"R$ 150,00", 15000, true},
		{"150.50", 15050, true},
		{150.0, 15000, true},
		{int64(7), 700, true},
		{42, 4200, true},
		{"sem número", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmountCents(tc.in)
		if !tc.ok {
			assert.False(t, ok, "%v", tc.in)
			continue
		}
		assert.True(t, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "150,00", FormatBRL(15000))
	assert.Equal(t, "0,05", FormatBRL(5))
	assert.Equal(t, "1234,56", FormatBRL(123456))
}
