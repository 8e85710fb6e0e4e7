package mocks

import (
	"context"

	"roombook/infras/otel"
)

type otelImpl struct{}

func (o *otelImpl) NewScope(ctx context.Context, _, _ string) (context.Context, otel.Scope) {
	return ctx, scopeImpl{}
}

func (o *otelImpl) Shutdown(context.Context) error {
	return nil
}

// NewOtel returns an Otel whose scopes record nothing.
func NewOtel() otel.Otel {
	return &otelImpl{}
}

type scopeImpl struct{}

func (scopeImpl) End() {}
func (scopeImpl) TraceError(error) {}
func (scopeImpl) TraceIfError(error) {}
func (scopeImpl) AddEvent(string) {}
func (scopeImpl) SetAttribute(string, any) {}
func (scopeImpl) SetAttributes(map[string]any) {}
