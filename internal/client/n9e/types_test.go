package n9e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanIdent(t *testing.T) {
	tests := []struct {
		ident string
		want  string
	}{
		{"web-1", "web-1"},
		{"web-1@10.0.0.1", "web-1"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			if got := CleanIdent(tt.ident); got != tt.want {
				t.Errorf("CleanIdent(%q) = %q, want %q", tt.ident, got, tt.want)
			}
		})
	}
}

func TestTargetData_TagValue(t *testing.T) {
	target := TargetData{
		Tags:     []string{"client=from-tags", "site=hq"},
		TagsMaps: map[string]string{"client": "from-map"},
	}

	v, ok := target.TagValue("client")
	assert.True(t, ok)
	assert.Equal(t, "from-map", v, "tags_maps wins over tags")

	v, ok = target.TagValue("site")
	assert.True(t, ok)
	assert.Equal(t, "hq", v)

	_, ok = target.TagValue("missing")
	assert.False(t, ok)
}

func TestTargetData_LastSeen(t *testing.T) {
	heartbeat := TargetData{Unixtime: 1702483200123, UpdateAt: 1}
	ts := heartbeat.LastSeen()
	if assert.NotNil(t, ts) {
		assert.Equal(t, time.UnixMilli(1702483200123).UTC(), *ts)
	}

	updated := TargetData{UpdateAt: 1702483200}
	ts = updated.LastSeen()
	if assert.NotNil(t, ts) {
		assert.Equal(t, int64(1702483200), ts.Unix())
	}

	assert.Nil(t, (&TargetData{}).LastSeen())
}
