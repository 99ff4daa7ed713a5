package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimary(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"en", "en"},
		{"en-US", "en"},
		{"EN-gb", "en"},
		{"pt_BR", "pt"},
		{"nl-BE", "nl"},
		{"FR", "fr"},
		{"  de ", "de"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, Primary(tt.tag))
		})
	}
}

func TestFromCode(t *testing.T) {
	lang, ok := FromCode("nl")
	require.True(t, ok)
	assert.Equal(t, "nl", lang.Code)
	assert.Equal(t, "Dutch", lang.Name)
	assert.Equal(t, "Nederlands", lang.NativeName)

	lang, ok = FromCode("fr-CA")
	require.True(t, ok)
	assert.Equal(t, "fr", lang.Code)

	_, ok = FromCode("xyz")
	assert.False(t, ok)
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"en", true},
		{"en-US", true},
		{"zh", true},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCode(tt.code))
		})
	}
}

func TestListMatchesCodes(t *testing.T) {
	list := List()
	assert.Len(t, list, len(Codes()))
	for _, lang := range list {
		assert.NotEmpty(t, lang.Name, "language %s has no display name", lang.Code)
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "French", Name("fr"))
	assert.Equal(t, "English", Name("en"))
	assert.Equal(t, "qq!", Name("qq!"))
}

func TestToProviderFormat(t *testing.T) {
	tests := []struct {
		code     string
		provider string
		target   bool
		want     string
	}{
		{"en", "deepgram", false, "en-US"},
		{"zh", "deepgram", false, "zh-CN"},
		{"fr", "deepgram", false, "fr"},
		{"", "deepgram", false, ""},

		{"en", "deepl", false, "EN"},
		{"en", "deepl", true, "EN-US"},
		{"pt-BR", "deepl", true, "PT-PT"},
		{"nl", "deepl", true, "NL"},
		{"nl", "deepl", false, "NL"},

		{"en-GB", "openai", false, "en"},
	}

	for _, tt := range tests {
		t.Run(tt.code+"_"+tt.provider, func(t *testing.T) {
			assert.Equal(t, tt.want, ToProviderFormat(tt.code, tt.provider, tt.target))
		})
	}
}
