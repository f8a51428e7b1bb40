// Package ai provides the generative-model client used as the low-confidence
// fallback for procedural-act classification.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// The model answers in Spanish legal vocabulary; the wire values below are
// what it is instructed to emit and what validation accepts.
const (
	wireTypePeremptory = "perentorio"
	wireTypeRoutine    = "tramite"
)

const promptTemplate = `Eres un asistente jurídico especializado en derecho procesal colombiano.
Clasifica la siguiente actuación judicial en una de dos categorías:

- "perentorio": la actuación impone una carga procesal con término para actuar
  (requerimientos, traslados, emplazamientos, términos para subsanar o contestar).
- "tramite": la actuación es de mero impulso procesal y no exige actuación de la
  parte (admisiones, archivos, constancias, remisiones).

Actuación:
%s

Responde únicamente con un objeto JSON con esta forma exacta:
{"tipo": "perentorio" | "tramite", "confianza": 0.0-1.0, "razon": "explicación breve"}`

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSONPattern   = regexp.MustCompile(`(?s)\{.*\}`)
)

// Config holds the generative-model endpoint parameters.
type Config struct {
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
}

// Verdict is the validated model answer.
type Verdict struct {
	Classification string
	Confidence     float64
	Reason         string
}

// Client calls a Gemini-style generateContent endpoint.  Safe for concurrent
// use.  Callers treat every error as a signal to fall back to the heuristic
// result, never as a hard failure.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient constructs the fallback client.  Endpoint and key are required;
// timeout defaults to 20s and temperature to 0.2.
func NewClient(cfg Config, log logging.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewValidation("ai endpoint cannot be empty")
	}
	if cfg.APIKey == "" {
		return nil, errors.NewValidation("ai api key cannot be empty")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.Named("ai"),
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type verdictPayload struct {
	Tipo      string   `json:"tipo"`
	Confianza *float64 `json:"confianza"`
	Razon     string   `json:"razon"`
}

// Classify asks the model for a verdict on one act's classification text.
func (c *Client) Classify(ctx context.Context, actText string) (*Verdict, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(promptTemplate, actText)}}}},
		GenerationConfig: generationConfig{Temperature: c.cfg.Temperature},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode ai request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeClassificationDegraded, "failed to build ai request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeClassificationDegraded, "ai endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeClassificationDegraded, "ai endpoint returned an error").
			WithDetail(fmt.Sprintf("status=%d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeClassificationDegraded, "failed to read ai response")
	}

	var gen generateResponse
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAIResponseInvalid, "ai response is not valid JSON")
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New(errors.ErrCodeAIResponseInvalid, "ai response has no candidates")
	}

	return parseVerdict(gen.Candidates[0].Content.Parts[0].Text)
}

func (c *Client) endpoint() string {
	endpoint := strings.TrimSuffix(c.cfg.Endpoint, "/")
	if c.cfg.Model != "" {
		endpoint = fmt.Sprintf("%s/models/%s:generateContent", endpoint, c.cfg.Model)
	}
	return endpoint + "?key=" + c.cfg.APIKey
}

// parseVerdict extracts and validates the JSON verdict from the model text.
// Fenced blocks are preferred; a bare object anywhere in the text is the
// second attempt.  Anything else is an invalid response.
func parseVerdict(text string) (*Verdict, error) {
	var candidate string
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else if m := bareJSONPattern.FindString(text); m != "" {
		candidate = m
	} else {
		return nil, errors.New(errors.ErrCodeAIResponseInvalid, "no JSON object in ai answer")
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAIResponseInvalid, "ai verdict is not valid JSON")
	}
	if payload.Confianza == nil {
		return nil, errors.New(errors.ErrCodeAIResponseInvalid, "ai verdict missing confidence")
	}

	var classification string
	switch strings.ToLower(strings.TrimSpace(payload.Tipo)) {
	case wireTypePeremptory:
		classification = caserecord.ClassificationPeremptory
	case wireTypeRoutine:
		classification = caserecord.ClassificationRoutine
	default:
		return nil, errors.New(errors.ErrCodeAIResponseInvalid, "ai verdict has unknown type").
			WithDetail("tipo=" + payload.Tipo)
	}

	confidence := *payload.Confianza
	if confidence < 0 || confidence > 1 {
		return nil, errors.New(errors.ErrCodeAIResponseInvalid, "ai confidence out of range")
	}

	return &Verdict{
		Classification: classification,
		Confidence:     confidence,
		Reason:         payload.Razon,
	}, nil
}
