package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"legalrag-backend/models"
	"legalrag-backend/retrieval"
)

var ErrGenerationFailed = errors.New("failed to generate answer")

const (
	DefaultGenerationModel = "gemini-1.5-pro"
	DefaultMaxContextChars = 30000
	generationRetries      = 3
)

// Answerer writes an answer to a question from retrieved chunks
type Answerer interface {
	Answer(ctx context.Context, question string, analysis retrieval.QueryAnalysis, chunks []models.ScoredChunk) (string, error)
}

const basePrompt = `You are an expert legal assistant specializing in %[1]s law,
particularly real estate law, ADRE regulations, and OAH proceedings. You provide accurate,
well-reasoned legal analysis while being accessible to non-lawyers.

Important guidelines:
1. Always cite specific statutes, cases, or regulations when applicable
2. Explain legal concepts in plain language when needed
3. Distinguish between binding authority and persuasive authority
4. Note any important deadlines or time limits
5. Identify when professional legal counsel should be sought

When analyzing %[1]s law:
- Statutes (A.R.S.) are primary authority
- Arizona Administrative Code (A.A.C.) provides regulatory details
- Case law interprets and applies statutes
- ADRE has specific authority over real estate professionals
- OAH handles administrative hearings`

var typePrompts = map[retrieval.QueryType]string{
	retrieval.QueryStatuteLookup: `When explaining statutes:
- Quote the relevant text exactly
- Explain the plain meaning
- Note any defined terms
- Identify related statutes or regulations
- Mention relevant case law interpretations`,
	retrieval.QueryCaseLookup: `When analyzing cases:
- State the holding clearly
- Explain the facts that led to the decision
- Identify the legal principles applied
- Note if it's binding precedent
- Mention any dissenting opinions if significant`,
	retrieval.QueryCompliance: `When assessing compliance:
- Identify all applicable laws and regulations
- Analyze each requirement separately
- Note any exceptions or defenses
- Suggest remedial actions if non-compliant
- Identify potential penalties or consequences`,
	retrieval.QueryPrecedent: `When searching for precedent:
- Focus on factually similar cases
- Prioritize binding authority
- Note distinguishing factors
- Explain the legal principles that transfer
- Mention trends in recent decisions`,
	retrieval.QueryDeadline: `When discussing deadlines:
- State the specific time limit clearly
- Identify what triggers the deadline
- Note any exceptions or extensions
- Explain consequences of missing the deadline
- Mention any notice requirements`,
	retrieval.QueryGeneral: `Provide comprehensive legal analysis:
- Identify the legal issues
- Research applicable law
- Apply law to facts
- Reach reasoned conclusions
- Suggest next steps`,
}

// SystemPrompt returns the system instruction for a query type; unknown types get
// the general instructions
func SystemPrompt(queryType retrieval.QueryType, jurisdiction string) string {
	if jurisdiction == "" {
		jurisdiction = "Arizona"
	}
	specific, ok := typePrompts[queryType]
	if !ok {
		specific = typePrompts[retrieval.QueryGeneral]
	}
	return fmt.Sprintf(basePrompt, jurisdiction) + "\n\n" + specific
}

// BuildContext renders chunks as numbered source blocks, stopping before maxChars
// is exceeded. The first chunk is always included, truncated if needed.
func BuildContext(chunks []models.ScoredChunk, maxChars int) string {
	var b strings.Builder
	for i, c := range chunks {
		var block strings.Builder
		fmt.Fprintf(&block, "[Source %d: %s", i+1, c.Source())
		if cn := c.CaseNumber(); cn != "" {
			fmt.Fprintf(&block, ", Case No. %s", cn)
		}
		if dt := c.Metadata[models.MetaDocumentType]; dt != "" {
			fmt.Fprintf(&block, ", %s", dt)
		}
		block.WriteString("]\n")
		block.WriteString(c.Content)
		block.WriteString("\n\n")

		if maxChars > 0 && b.Len()+block.Len() > maxChars {
			if i == 0 {
				b.WriteString(truncateRunes(block.String(), maxChars))
			}
			break
		}
		b.WriteString(block.String())
	}
	return strings.TrimSpace(b.String())
}

func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// BuildPrompt assembles the user turn from the retrieved context and the query analysis
func BuildPrompt(question string, analysis retrieval.QueryAnalysis, context string) string {
	focus := analysis.Focus
	if focus == "" {
		focus = "general"
	}
	queryType := analysis.Type
	if queryType == "" {
		queryType = retrieval.QueryGeneral
	}
	return fmt.Sprintf(`Context from relevant documents:
%s

Legal Question: %s

Additional Instructions:
- %s
- Consider any expanded terms: %s
- Query type: %s

Please provide a thorough legal analysis.`,
		context,
		question,
		focus,
		strings.Join(analysis.ExpandedTerms, ", "),
		queryType,
	)
}

// GeminiAnswerer generates answers with a Gemini model
type GeminiAnswerer struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxContextChars int
	jurisdiction    string
	backoff         time.Duration
	logger          *zap.Logger
}

// GeminiAnswererOption is a functional option for GeminiAnswerer
type GeminiAnswererOption func(*GeminiAnswerer)

// AnswerWithModel sets the generation model
func AnswerWithModel(model string) GeminiAnswererOption {
	return func(a *GeminiAnswerer) {
		if model != "" {
			a.model = model
		}
	}
}

// AnswerWithTemperature sets the sampling temperature
func AnswerWithTemperature(t float32) GeminiAnswererOption {
	return func(a *GeminiAnswerer) {
		a.temperature = t
	}
}

// AnswerWithMaxContextChars bounds the retrieved text placed in the prompt
func AnswerWithMaxContextChars(n int) GeminiAnswererOption {
	return func(a *GeminiAnswerer) {
		if n > 0 {
			a.maxContextChars = n
		}
	}
}

// AnswerWithJurisdiction names the jurisdiction in the system prompt
func AnswerWithJurisdiction(j string) GeminiAnswererOption {
	return func(a *GeminiAnswerer) {
		if j != "" {
			a.jurisdiction = j
		}
	}
}

// AnswerWithLogger sets the logger
func AnswerWithLogger(logger *zap.Logger) GeminiAnswererOption {
	return func(a *GeminiAnswerer) {
		a.logger = logger
	}
}

// NewGeminiAnswerer wraps an existing genai client
func NewGeminiAnswerer(client *genai.Client, opts ...GeminiAnswererOption) *GeminiAnswerer {
	a := &GeminiAnswerer{
		client:          client,
		model:           DefaultGenerationModel,
		maxContextChars: DefaultMaxContextChars,
		jurisdiction:    "Arizona",
		backoff:         time.Second,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer generates an answer with the query-type specific system prompt, retrying
// transient failures with exponential backoff
func (a *GeminiAnswerer) Answer(ctx context.Context, question string, analysis retrieval.QueryAnalysis, chunks []models.ScoredChunk) (string, error) {
	if a.client == nil {
		return "", errors.New("gemini client not set")
	}

	model := a.client.GenerativeModel(a.model)
	model.SetTemperature(a.temperature)
	model.SystemInstruction = genai.NewUserContent(genai.Text(SystemPrompt(analysis.Type, a.jurisdiction)))
	prompt := BuildPrompt(question, analysis, BuildContext(chunks, a.maxContextChars))

	var err error
	backoff := a.backoff
	for attempt := 0; attempt < generationRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		var resp *genai.GenerateContentResponse
		resp, err = model.GenerateContent(ctx, genai.Text(prompt))
		if err == nil {
			var text string
			text, err = responseText(resp)
			if err == nil {
				return text, nil
			}
		}
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		a.logger.Warn("answer generation failed",
			zap.String("model", a.model),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrGenerationFailed, generationRetries, err)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("model returned no candidates")
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	if b.Len() == 0 {
		return "", errors.New("model returned empty content")
	}
	return b.String(), nil
}
