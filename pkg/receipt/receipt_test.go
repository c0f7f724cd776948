package receipt

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

func testResult() *drm.Result {
	return &drm.Result{
		SongID:           drm.SongID{0xde, 0xad, 0xbe, 0xef},
		Segments:         3,
		FirstSegmentSize: drm.DefaultSegmentSize,
		BodyLength:       2*drm.DefaultSegmentSize + 100,
		PaddedLength:     2*drm.DefaultSegmentSize + 112,
		ContainerSize:    drm.HeaderSize + 3*drm.TrailerSize + 2*drm.DefaultSegmentSize + 112,
	}
}

func TestNew(t *testing.T) {
	res := testResult()
	r := New(res, "misha", []string{"Japan"}, KeyRef{Backend: "file", Locator: "keys/x.key"})

	if r.Version != Version {
		t.Errorf("version: got %q", r.Version)
	}
	if r.SongID != res.SongID.String() {
		t.Errorf("song id: got %q", r.SongID)
	}
	if r.Layout.BodyLength != res.BodyLength || r.Layout.Segments != 3 {
		t.Errorf("layout: got %+v", r.Layout)
	}
	if r.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}

	id, err := r.ID()
	if err != nil {
		t.Fatalf("ID failed: %v", err)
	}
	if id != res.SongID {
		t.Error("ID doesn't match the result")
	}
}

func TestYAML(t *testing.T) {
	r := New(testResult(), "misha", []string{"United States", "Japan"}, KeyRef{Backend: "redis", Locator: "drm:key:dead"})

	data, err := r.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML failed: %v", err)
	}
	for _, key := range []string{"song_id:", "body_length:", "first_segment_size:", "backend: redis"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("missing %q in:\n%s", key, data)
		}
	}

	decoded, err := FromYAML(data)
	if err != nil {
		t.Fatalf("FromYAML failed: %v", err)
	}
	if decoded.Layout != r.Layout || decoded.Key != r.Key || !decoded.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("decoded receipt differs:\n%+v\n%+v", decoded, r)
	}
}

func TestFromYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "song_id: [unclosed"},
		{"wrong version", "version: \"9\"\nsong_id: ab\n"},
		{"missing version", "song_id: ab\n"},
		{"negative length", "version: \"1\"\nlayout:\n  body_length: -5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromYAML([]byte(tt.data)); !errors.Is(err, drm.ErrFormat) {
				t.Errorf("expected a format error, got %v", err)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	res := testResult()
	r := New(res, "misha", nil, KeyRef{Backend: "memory"})

	h := &drm.Header{SongID: res.SongID, NrSegments: res.Segments, FirstSegmentSize: res.FirstSegmentSize}
	if !r.Matches(h) {
		t.Error("receipt should match its header")
	}

	h.NrSegments++
	if r.Matches(h) {
		t.Error("receipt should not match a different layout")
	}
	h.NrSegments--

	tests := []struct {
		name       string
		bodyLength int64
	}{
		{"inside first segment", 10},
		{"missing terminal bytes", 2 * drm.DefaultSegmentSize},
		{"past the last segment", 3*drm.DefaultSegmentSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edited := *r
			edited.Layout.BodyLength = tt.bodyLength
			if edited.Matches(h) {
				t.Errorf("body length %d should not match %d segments", tt.bodyLength, h.NrSegments)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := Path(filepath.Join(t.TempDir(), "song.drm"))
	if !strings.HasSuffix(path, "song.drm.receipt.yaml") {
		t.Errorf("path: got %q", path)
	}

	r := New(testResult(), "misha", nil, KeyRef{Backend: "derived"})
	if err := r.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.SongID != r.SongID || loaded.Layout != r.Layout {
		t.Error("loaded receipt differs")
	}

	if _, err := Load(path + ".missing"); !errors.Is(err, drm.ErrInput) {
		t.Errorf("expected an input error, got %v", err)
	}
}
