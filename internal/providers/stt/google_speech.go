package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"

	"github.com/yoockh/voicetasks/internal/utils"
)

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleSpeech is the synchronous backend: one Recognize call with the audio
// inline.
type GoogleSpeech struct {
	c recognizer

	Language     string
	SampleRateHz int32
}

var _ Provider = (*GoogleSpeech)(nil)

// googleClientOptions authenticates with apiKey when set, otherwise with
// application default credentials.
func googleClientOptions(apiKey string) []option.ClientOption {
	if apiKey == "" {
		return nil
	}
	return []option.ClientOption{option.WithAPIKey(apiKey)}
}

func NewGoogleSpeech(ctx context.Context, apiKey, language string, sampleRateHz int) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx, googleClientOptions(apiKey)...)
	if err != nil {
		return nil, utils.E(utils.CodeConfiguration, "GoogleSpeech.New", "failed to create speech client", err)
	}
	return newGoogleSpeech(c, language, sampleRateHz), nil
}

func newGoogleSpeech(c recognizer, language string, sampleRateHz int) *GoogleSpeech {
	return &GoogleSpeech{
		c:            c,
		Language:     googleLanguage(language),
		SampleRateHz: int32(sampleRateHz),
	}
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) Transcribe(ctx context.Context, audio Audio) (string, error) {
	const op = "GoogleSpeech.Transcribe"

	if len(audio.Data) == 0 {
		return "", utils.E(utils.CodeInvalidArgument, op, "No audio data provided", nil)
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig(audio.MIMEType, g.SampleRateHz, g.Language),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.Data},
		},
	})
	if err != nil {
		return "", googleBackendError(op, err)
	}

	text := firstAlternatives(resp.GetResults())
	if text == "" {
		return "", utils.E(utils.CodeEmptyTranscription, op, "No transcription returned from Google Speech", nil)
	}
	return text, nil
}

// firstAlternatives joins the top alternative of every result; Google splits
// longer speech into consecutive results.
func firstAlternatives(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func recognitionConfig(mimeType string, sampleRateHz int32, language string) *speechpb.RecognitionConfig {
	enc, needsRate := googleEncoding(mimeType)
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   enc,
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}
	// WAV and FLAC carry the rate in their header.
	if needsRate {
		cfg.SampleRateHertz = sampleRateHz
	}
	return cfg
}

func googleEncoding(mimeType string) (speechpb.RecognitionConfig_AudioEncoding, bool) {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS, true
	case strings.Contains(m, "ogg"):
		return speechpb.RecognitionConfig_OGG_OPUS, true
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC, false
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16, false
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, false
	}
}

// language example: "es" -> "es-ES"
func googleLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "", "es", "es-ES":
		return "es-ES"
	case "en", "en-US":
		return "en-US"
	default:
		return v
	}
}

func googleBackendError(op string, err error) error {
	if st, ok := status.FromError(err); ok {
		return utils.E(utils.CodeTranscriptionBackend, op, "Google Speech error: "+st.Message(), err)
	}
	return utils.E(utils.CodeTranscriptionBackend, op, "Google Speech error", err)
}
