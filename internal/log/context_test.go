package log

import (
	"context"
	"testing"
)

func TestFromContext_ReturnsStored(t *testing.T) {
	l := Nop()
	ctx := WithContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Fatal("FromContext did not return the stored logger")
	}
}

func TestFromContext_EmptyReturnsNop(t *testing.T) {
	got := FromContext(context.Background())
	if got == nil {
		t.Fatal("FromContext returned nil")
	}
	// must be safe to use
	got.Info(context.Background(), "into the void")
}

func TestFromContext_NilLoggerFallsBack(t *testing.T) {
	ctx := WithContext(context.Background(), nil)
	got := FromContext(ctx)
	if got == nil {
		t.Fatal("FromContext returned nil for nil stored logger")
	}
	got.Warn(context.Background(), "still safe")
}
