package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/errdefs"
)

func providerConfig(endpoint string) *config.ProvidersConfig {
	cfg := config.DefaultProvidersConfig()
	cfg.Endpoint = endpoint
	cfg.APIKey = "test-key"
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestLLMExtractParsesChatResponse(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		content := `{"characters":[{"name":"Mira"}],"chapters":[]}`
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewLLMClient(providerConfig(srv.URL))
	result, err := client.Extract(context.Background(), "analyze this")
	require.NoError(t, err)
	require.Len(t, result.Characters, 1)
	assert.Equal(t, "Mira", result.Characters[0].Name)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestLLMExtractEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client := NewLLMClient(providerConfig(srv.URL))
	_, err := client.Extract(context.Background(), "p")
	var pe *errdefs.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestLLMExtractMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "not json at all"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewLLMClient(providerConfig(srv.URL))
	_, err := client.Extract(context.Background(), "p")
	var pe *errdefs.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestPostJSONNon2xxBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewLLMClient(providerConfig(srv.URL))
	_, err := client.Extract(context.Background(), "p")
	var ae *errdefs.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusTooManyRequests, ae.Status)
	assert.Contains(t, ae.Body, "rate limited")
}

func TestPostJSONUnreachableEndpoint(t *testing.T) {
	cfg := providerConfig("http://127.0.0.1:1")
	cfg.Timeout = time.Second

	client := NewLLMClient(cfg)
	_, err := client.Extract(context.Background(), "p")
	var ae *errdefs.APIError
	require.ErrorAs(t, err, &ae)
}

func TestImageGenerateDecodesBase64(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)

		var req imageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "512x512", req.Size)
		assert.Empty(t, req.Image)

		resp := map[string]any{
			"data": []map[string]any{
				{"b64_json": base64.StdEncoding.EncodeToString(raw)},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewImageClient(providerConfig(srv.URL))
	data, err := client.Generate(context.Background(), "a castle at dusk", nil)
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestImageGenerateCarriesReference(t *testing.T) {
	ref := []byte("reference-image")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req imageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, base64.StdEncoding.EncodeToString(ref), req.Image)

		resp := map[string]any{
			"data": []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString([]byte("x"))}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewImageClient(providerConfig(srv.URL))
	_, err := client.Generate(context.Background(), "p", ref)
	require.NoError(t, err)
}

func TestImageGenerateEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	client := NewImageClient(providerConfig(srv.URL))
	_, err := client.Generate(context.Background(), "p", nil)
	var ge *errdefs.GenerationError
	require.ErrorAs(t, err, &ge)
}

func TestTTSSpeakDecodesAudio(t *testing.T) {
	raw := []byte("mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/voice/tts", r.URL.Path)

		var req ttsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qiniu_zh_male_tyygjs", req.Audio.VoiceType)
		assert.Equal(t, "mp3", req.Audio.Encoding)
		assert.Equal(t, "hello", req.Request.Text)

		json.NewEncoder(w).Encode(map[string]any{"data": base64.StdEncoding.EncodeToString(raw)})
	}))
	defer srv.Close()

	client := NewTTSClient(providerConfig(srv.URL))
	data, err := client.Speak(context.Background(), "hello", "qiniu_zh_male_tyygjs")
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestTTSSpeakEmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": ""})
	}))
	defer srv.Close()

	client := NewTTSClient(providerConfig(srv.URL))
	_, err := client.Speak(context.Background(), "hello", "v")
	var se *errdefs.SynthesisError
	require.ErrorAs(t, err, &se)
}
