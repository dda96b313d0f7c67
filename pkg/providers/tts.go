package providers

import (
	"context"
	"encoding/base64"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/errdefs"
)

const ttsService = "TTS"

// SpeechSynthesizer is the renderer's view of the TTS backend.
type SpeechSynthesizer interface {
	// Speak synthesizes text with the given voice and returns encoded
	// audio bytes.
	Speak(ctx context.Context, text, voiceType string) ([]byte, error)
}

// TTSClient calls the speech synthesis endpoint. Responses carry the audio
// as a base64 string inside a JSON envelope.
type TTSClient struct {
	http       *httpClient
	encoding   string
	speedRatio float64
}

// NewTTSClient creates a TTS provider client.
func NewTTSClient(cfg *config.ProvidersConfig) *TTSClient {
	return &TTSClient{
		http:       newHTTPClient(cfg),
		encoding:   cfg.TTSEncoding,
		speedRatio: cfg.TTSSpeedRatio,
	}
}

type ttsRequest struct {
	Audio struct {
		VoiceType  string  `json:"voice_type"`
		Encoding   string  `json:"encoding"`
		SpeedRatio float64 `json:"speed_ratio"`
	} `json:"audio"`
	Request struct {
		Text string `json:"text"`
	} `json:"request"`
}

type ttsResponse struct {
	Data string `json:"data"`
}

// Speak implements SpeechSynthesizer.
func (c *TTSClient) Speak(ctx context.Context, text, voiceType string) ([]byte, error) {
	var req ttsRequest
	req.Audio.VoiceType = voiceType
	req.Audio.Encoding = c.encoding
	req.Audio.SpeedRatio = c.speedRatio
	req.Request.Text = text

	var resp ttsResponse
	if err := c.http.postJSON(ctx, ttsService, "/v1/voice/tts", req, &resp); err != nil {
		return nil, err
	}
	if resp.Data == "" {
		return nil, &errdefs.SynthesisError{Message: "TTS response contains no audio data"}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, &errdefs.ParseError{Service: ttsService, Err: err}
	}
	return data, nil
}
