// Package gemini is the HTTP client for the generative-AI collaborator. It
// covers the three upstream calls the product needs: screenshot extraction,
// offer discovery, and strategy text.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"loot-tracker-api/internal/models"
	"loot-tracker-api/internal/validation"
)

const (
	// DefaultBaseURL is the Google Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultModel is the model every call uses unless configured otherwise.
	DefaultModel = "gemini-3-flash-preview"

	defaultTimeout = 30 * time.Second
)

// CollaboratorUnavailableError wraps any transport, status, or response
// shape failure from the AI service. Callers must leave their prior state
// untouched when they see one.
type CollaboratorUnavailableError struct {
	Op  string
	Err error
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("ai collaborator unavailable during %s: %v", e.Op, e.Err)
}

func (e *CollaboratorUnavailableError) Unwrap() error {
	return e.Err
}

// Client talks to the generateContent endpoint of a single model.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient builds a collaborator client. Empty baseURL, model, or timeout
// fall back to the package defaults.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
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

// generate performs one generateContent call and returns the first
// candidate's text.
func (c *Client) generate(ctx context.Context, op string, req generateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("unexpected status: %d", resp.StatusCode)}
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("empty response")}
	}

	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

const analyzePrompt = `You are an expert in Chinese bank loyalty programs. Analyze this screenshot of a bank promotion.
Identify:
1. The bank name.
2. The type of reward (Lottery, Cashback, Points, Coupon).
3. Key steps to participate.
4. Expiry date.
5. Estimated value in CNY.

Respond ONLY in JSON format following this schema:
{
  "bank": "string",
  "title": "string",
  "category": "Lottery | Cashback | Points | Coupon",
  "steps": ["step 1", "step 2"],
  "expiryDate": "YYYY-MM-DD",
  "estimatedValue": number
}`

// AnalyzeScreenshot extracts a single offer draft from a promotion
// screenshot. An unparsable image or a malformed extraction fails the whole
// call; nothing partial is ever returned.
func (c *Client) AnalyzeScreenshot(ctx context.Context, image []byte) (models.OfferDraft, error) {
	const op = "screenshot analysis"

	if len(image) == 0 {
		return models.OfferDraft{}, &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("empty image")}
	}

	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MIMEType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: analyzePrompt},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMIMEType: "application/json"},
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return models.OfferDraft{}, err
	}

	var draft models.OfferDraft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return models.OfferDraft{}, &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("malformed extraction: %w", err)}
	}
	if err := validation.ValidateDraft(draft); err != nil {
		return models.OfferDraft{}, &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("malformed extraction: %w", err)}
	}

	return draft, nil
}

const discoveryPromptFormat = `当前日期是 %s。请联网搜索目前中国各大主流银行（工行、建行、招行、农行、中行、交行、平安、兴业等）正在进行的、真实有效的“薅羊毛”活动。
重点关注：手机银行App签到抽奖、微信立减金领取、数字人民币红包、消费达标返现等。
请列出至少6个最新活动，确保日期覆盖当前月份。
请仅以 JSON 数组格式返回，每个元素包含 bank、title、category、steps、expiryDate、estimatedValue 字段。`

// FetchLatestOffers asks the collaborator for currently running promotions.
// The contract is all-or-nothing: any malformed record fails the whole
// batch so the caller's merge never runs on partial data.
func (c *Client) FetchLatestOffers(ctx context.Context, now time.Time) ([]models.OfferDraft, error) {
	const op = "offer discovery"

	req := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: fmt.Sprintf(discoveryPromptFormat, now.Format("2006年1月2日"))}},
		}},
		GenerationConfig: &generationConfig{ResponseMIMEType: "application/json"},
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var drafts []models.OfferDraft
	if err := json.Unmarshal([]byte(text), &drafts); err != nil {
		return nil, &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("malformed batch: %w", err)}
	}
	for i, d := range drafts {
		if err := validation.ValidateDraft(d); err != nil {
			return nil, &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("malformed batch record %d: %w", i, err)}
		}
	}

	return drafts, nil
}

const strategyPromptFormat = `Based on the user's cards: [%s] and the following active bank promotions: %s,
provide a priority list of which activities to do first to maximize returns with minimum effort.
Focus on "薅羊毛" (high reward/effort ratio). Keep the tone encouraging and professional in Chinese.`

// OptimizationStrategy asks for free-text prioritization advice over the
// user's banks and the current offer summaries.
func (c *Client) OptimizationStrategy(ctx context.Context, ownedBanks []models.Bank, offerSummaries string) (string, error) {
	const op = "strategy generation"

	banks := make([]string, len(ownedBanks))
	for i, b := range ownedBanks {
		banks[i] = string(b)
	}

	req := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: fmt.Sprintf(strategyPromptFormat, strings.Join(banks, ", "), offerSummaries)}},
		}},
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", &CollaboratorUnavailableError{Op: op, Err: fmt.Errorf("empty strategy")}
	}

	return text, nil
}
