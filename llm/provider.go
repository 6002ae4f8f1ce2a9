// Package llm wraps the text-completion backends used to phrase answers.
package llm

import (
	"context"
	"errors"
)

var ErrEmptyResponse = errors.New("model returned an empty response")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

type Option func(*Options)

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func applyOptions(defaults Options, opts []Option) Options {
	o := defaults
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Provider sends a chat history to a model and returns its reply.
type Provider interface {
	Chat(ctx context.Context, history []Message, opts ...Option) (string, error)
}
