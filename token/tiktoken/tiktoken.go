//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package tiktoken provides a tiktoken-go backed precise token counter
// that satisfies both host.TokenCounter and host.SyncTokenCounter.
package tiktoken

import (
	"context"
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens with a tiktoken codec.
type Counter struct {
	codec tokenizer.Codec
}

// New creates a Counter for the given OpenAI-style model name.
// Unsupported models fall back to cl100k_base.
func New(modelName string) (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.Model(modelName))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return nil, fmt.Errorf("get fallback tokenizer: %w", err)
		}
	}
	return &Counter{codec: codec}, nil
}

// CountTokens implements host.TokenCounter.
func (c *Counter) CountTokens(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	toks, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	return len(toks), nil
}

// CountTokensSync implements host.SyncTokenCounter. Encoding failures
// report no count so callers fall through to their heuristic.
func (c *Counter) CountTokensSync(text string) (int, bool) {
	n, err := c.CountTokens(context.Background(), text)
	if err != nil {
		return 0, false
	}
	return n, true
}
