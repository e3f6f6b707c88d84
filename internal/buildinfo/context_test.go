package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextGetVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{name: "nil context", ctx: nil, want: "unknown"},
		{name: "empty version", ctx: &Context{}, want: "unknown"},
		{name: "set version", ctx: &Context{Version: "v1.2.3"}, want: "v1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ctx.GetVersion())
		})
	}
}

func TestContextGetBuildDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{name: "nil context", ctx: nil, want: "unknown"},
		{name: "empty date", ctx: &Context{}, want: "unknown"},
		{name: "set date", ctx: &Context{BuildDate: "2026-08-24T10:00:00Z"}, want: "2026-08-24T10:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ctx.GetBuildDate())
		})
	}
}
