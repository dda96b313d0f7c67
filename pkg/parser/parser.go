// Package parser implements the first pipeline stage: splitting long novel
// text into chunks, extracting structured data per chunk via the parser LLM,
// and merging the chunks with stable character/scene identity.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/errdefs"
	"github.com/IsPHao/storyreel/pkg/models"
	"github.com/IsPHao/storyreel/pkg/providers"
)

// Parser drives per-chunk extraction and merging.
type Parser struct {
	llm providers.LLMExtractor
	cfg *config.ParserConfig
}

// New creates a parser stage over the given extraction LLM.
func New(llm providers.LLMExtractor, cfg *config.ParserConfig) *Parser {
	return &Parser{llm: llm, cfg: cfg}
}

// Parse converts novel text into a structured parse result.
//
// Simple mode runs the whole text as a single chunk through the same
// machinery enhanced mode uses, so a single-chunk enhanced parse and a
// simple parse of the same text are equivalent by construction.
func (p *Parser) Parse(ctx context.Context, text string, mode models.ParseMode, opts models.ParseOptions) (*models.NovelParseResult, error) {
	if err := p.validateInput(text, mode); err != nil {
		return nil, err
	}

	if opts.MaxCharacters <= 0 {
		opts.MaxCharacters = p.cfg.MaxCharacters
	}
	if opts.MaxScenes <= 0 {
		opts.MaxScenes = p.cfg.MaxScenes
	}

	var chunks []string
	if mode == models.ParseModeEnhanced {
		chunks = splitIntoChunks(text, p.cfg.ChunkSize)
	} else {
		chunks = []string{text}
	}
	slog.Info("Parsing novel text", "mode", mode, "chunks", len(chunks), "length", utf8.RuneCountInString(text))

	// Any chunk failure fails the whole parse; there are no partial results.
	results := make([]*models.NovelParseResult, 0, len(chunks))
	for i, chunk := range chunks {
		extracted, err := p.llm.Extract(ctx, buildPrompt(chunk, opts))
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d extraction failed: %w", i+1, len(chunks), err)
		}
		results = append(results, extracted)
	}

	merged := mergeChunks(results)
	truncate(merged, opts)

	if err := validateResult(merged); err != nil {
		slog.Warn("Merged parse result failed validation, applying lenient reconstruction", "error", err)
		merged = sanitizeResult(merged)
	}

	if len(merged.Characters) == 0 {
		return nil, errdefs.NewValidationError("characters", "no characters extracted")
	}
	if len(merged.Chapters) == 0 {
		return nil, errdefs.NewValidationError("chapters", "no chapters extracted")
	}

	slog.Info("Novel parsed",
		"characters", len(merged.Characters),
		"chapters", len(merged.Chapters),
		"scenes", merged.TotalScenes())
	return merged, nil
}

func (p *Parser) validateInput(text string, mode models.ParseMode) error {
	n := utf8.RuneCountInString(text)
	if n < p.cfg.MinTextLength {
		return errdefs.NewValidationError("novel_text",
			fmt.Sprintf("text too short: %d characters, minimum %d", n, p.cfg.MinTextLength))
	}
	if n > p.cfg.MaxTextLength {
		return errdefs.NewValidationError("novel_text",
			fmt.Sprintf("text too long: %d characters, maximum %d", n, p.cfg.MaxTextLength))
	}
	if !mode.IsValid() {
		return errdefs.NewValidationError("mode",
			fmt.Sprintf("invalid mode %q: must be 'simple' or 'enhanced'", mode))
	}
	return nil
}

// truncate enforces the extraction limits on the merged result.
func truncate(res *models.NovelParseResult, opts models.ParseOptions) {
	if len(res.Characters) > opts.MaxCharacters {
		res.Characters = res.Characters[:opts.MaxCharacters]
	}
	remaining := opts.MaxScenes
	for i := range res.Chapters {
		ch := &res.Chapters[i]
		if len(ch.Scenes) > remaining {
			ch.Scenes = ch.Scenes[:remaining]
		}
		remaining -= len(ch.Scenes)
		if remaining == 0 {
			res.Chapters = res.Chapters[:i+1]
			break
		}
	}
}
