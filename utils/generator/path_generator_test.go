package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPathGenerator_GenerateWatchImagePath(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	pg := NewPathGeneratorWithClock(func() time.Time { return now })

	p := pg.GenerateWatchImagePath("owner-1", "watch-9")
	assert.Equal(t, "owner-1", p.Owner)
	assert.Equal(t, "watch-9", p.Record)
	assert.Equal(t, "watch_watch-9_1700000000123.jpg", p.Filename)
	assert.Equal(t, "owner-1/watch-9/watch_watch-9_1700000000123.jpg", p.Key())
}

func TestParseImageURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{
			name:   "storage style url",
			url:    "https://x.example.co/storage/v1/object/public/watch-images/u1/w1/watch_w1_1.jpg",
			want:   "u1/w1/watch_w1_1.jpg",
			wantOK: true,
		},
		{
			name:   "service url",
			url:    "http://localhost:8080/watch-images/u1/w1/watch_w1_1.jpg",
			want:   "u1/w1/watch_w1_1.jpg",
			wantOK: true,
		},
		{
			name:   "query string dropped",
			url:    "http://localhost:8080/watch-images/u1/w1/a.jpg?v=2",
			want:   "u1/w1/a.jpg",
			wantOK: true,
		},
		{
			name:   "extra segments ignored",
			url:    "http://cdn/watch-images/u1/w1/a.jpg/extra",
			want:   "u1/w1/a.jpg",
			wantOK: true,
		},
		{name: "too few segments", url: "http://cdn/watch-images/u1/a.jpg"},
		{name: "no bucket", url: "http://cdn/other-bucket/u1/w1/a.jpg"},
		{name: "bucket as prefix only", url: "http://cdn/watch-images-old/u1/w1/a.jpg"},
		{name: "empty", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseImageURL(tt.url, "watch-images")
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.Key())
			}
		})
	}
}

func TestParseImageKey(t *testing.T) {
	p, ok := ParseImageKey("u1/w1/a.jpg")
	assert.True(t, ok)
	assert.Equal(t, "w1", p.Record)

	_, ok = ParseImageKey("u1/a.jpg")
	assert.False(t, ok)
	_, ok = ParseImageKey("u1//a.jpg")
	assert.False(t, ok)
}

func TestBuildPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://cdn.example.com/watch-images/u1/w1/a.jpg",
		BuildPublicURL("https://cdn.example.com/", "watch-images", "/u1/w1/a.jpg"))
}
