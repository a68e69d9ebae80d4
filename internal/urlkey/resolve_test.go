package urlkey

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		href        string
		origin      string
		currentPath string
		extended    bool
		want        string
		wantErr     bool
	}{
		{
			name:        "root-relative joined to origin",
			href:        "/a/b",
			origin:      "https://x.com",
			currentPath: "/cur",
			want:        "https://x.com/a/b",
		},
		{
			name:        "origin trailing slash trimmed",
			href:        "/a",
			origin:      "https://x.com/",
			currentPath: "/",
			want:        "https://x.com/a",
		},
		{
			name:   "absolute https returned verbatim",
			href:   "https://www.Shop.com/sale/",
			origin: "https://x.com",
			want:   "https://www.Shop.com/sale/",
		},
		{
			name:   "absolute scheme is case-insensitive",
			href:   "HTTP://X.com/a",
			origin: "https://x.com",
			want:   "HTTP://X.com/a",
		},
		{
			name:   "surrounding whitespace trimmed",
			href:   "  /a  ",
			origin: "https://x.com",
			want:   "https://x.com/a",
		},
		{
			name:    "empty href",
			href:    "",
			origin:  "https://x.com",
			wantErr: true,
		},
		{
			name:     "blank href even when extended",
			href:     "   ",
			origin:   "https://x.com",
			extended: true,
			wantErr:  true,
		},
		{
			name:    "protocol-relative without extended resolution",
			href:    "//cdn.x.com/lib",
			origin:  "https://x.com",
			wantErr: true,
		},
		{
			name:     "protocol-relative with extended resolution",
			href:     "//cdn.x.com/lib",
			origin:   "https://x.com",
			extended: true,
			want:     "https://cdn.x.com/lib",
		},
		{
			name:        "dot-dot without extended resolution",
			href:        "../a",
			origin:      "https://x.com",
			currentPath: "/cur/sub",
			wantErr:     true,
		},
		{
			name:        "dot-dot with extended resolution",
			href:        "../a",
			origin:      "https://x.com",
			currentPath: "/cur/sub",
			extended:    true,
			want:        "https://x.com/a",
		},
		{
			name:        "dot-slash resolves against directory",
			href:        "./c",
			origin:      "https://x.com",
			currentPath: "/cur/sub",
			extended:    true,
			want:        "https://x.com/cur/c",
		},
		{
			name:        "bare path resolves against directory",
			href:        "c",
			origin:      "https://x.com",
			currentPath: "/cur/",
			extended:    true,
			want:        "https://x.com/cur/c",
		},
		{
			name:        "bare path without extended resolution",
			href:        "other.com/sale",
			origin:      "https://shop.com",
			currentPath: "/",
			wantErr:     true,
		},
		{
			name:        "empty current path treated as root",
			href:        "c",
			origin:      "https://x.com",
			currentPath: "",
			extended:    true,
			want:        "https://x.com/c",
		},
		{
			name:        "fragment-only resolves to current page",
			href:        "#top",
			origin:      "https://x.com",
			currentPath: "/page",
			extended:    true,
			want:        "https://x.com/page#top",
		},
		{
			name:        "mailto rejected",
			href:        "mailto:a@b.com",
			origin:      "https://x.com",
			currentPath: "/",
			extended:    true,
			wantErr:     true,
		},
		{
			name:        "javascript rejected",
			href:        "javascript:void(0)",
			origin:      "https://x.com",
			currentPath: "/",
			extended:    true,
			wantErr:     true,
		},
		{
			name:        "unparseable origin",
			href:        "a",
			origin:      "://bad",
			currentPath: "/",
			extended:    true,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(tt.href, tt.origin, tt.currentPath, tt.extended)
			if tt.wantErr {
				if !errors.Is(err, ErrUnresolvable) {
					t.Fatalf("Resolve(%q) error = %v, want ErrUnresolvable", tt.href, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.href, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}
