package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModel(t *testing.T) {
	m, err := GetModel("deepgram", "nova-3")
	require.NoError(t, err)
	assert.True(t, m.SupportsStreaming)
	assert.True(t, m.CodeSwitching)
	assert.Equal(t, "wss://api.deepgram.com/v1/listen", m.StreamingEndpoint.URL())
	assert.Equal(t, "https://api.deepgram.com/v1/listen", m.Endpoint.URL())

	_, err = GetModel("deepgram", "whisper-1")
	assert.Error(t, err)

	_, err = GetModel("nope", "nova-3")
	assert.Error(t, err)
}

func TestEndpointURLNil(t *testing.T) {
	var e *EndpointConfig
	assert.Empty(t, e.URL())
}

func TestModelTypeString(t *testing.T) {
	assert.Equal(t, "transcription", Transcription.String())
	assert.Equal(t, "translation", Translation.String())
	assert.Equal(t, "llm", LLM.String())
	assert.Equal(t, "ModelType(9)", ModelType(9).String())
}

func TestDeepLEndpoint(t *testing.T) {
	assert.Equal(t, "https://api-free.deepl.com/v2/translate", DeepLEndpoint("abc:fx").URL())
	assert.Equal(t, "https://api.deepl.com/v2/translate", DeepLEndpoint("abc").URL())
}
