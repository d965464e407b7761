package models

import (
	"reflect"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestDocumentApply(t *testing.T) {
	base := Document{
		ID:         "doc-1",
		Name:       "Refund policy",
		Type:       DocTypeMarkdown,
		Category:   "general",
		Tags:       []string{"billing"},
		Size:       1024,
		ChunkCount: 3,
		UploadedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	tests := []struct {
		name   string
		update DocumentUpdate
		want   Document
	}{
		{
			name:   "empty update keeps everything",
			update: DocumentUpdate{},
			want:   base,
		},
		{
			name:   "name only",
			update: DocumentUpdate{Name: strPtr("Refunds v2")},
			want: func() Document {
				d := base
				d.Name = "Refunds v2"
				return d
			}(),
		},
		{
			name:   "category and tags",
			update: DocumentUpdate{Category: strPtr("policies"), Tags: &[]string{"billing", "refunds"}},
			want: func() Document {
				d := base
				d.Category = "policies"
				d.Tags = []string{"billing", "refunds"}
				return d
			}(),
		},
		{
			name:   "tags can be cleared",
			update: DocumentUpdate{Tags: &[]string{}},
			want: func() Document {
				d := base
				d.Tags = []string{}
				return d
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.Apply(tt.update)
			if got.Name != tt.want.Name || got.Category != tt.want.Category {
				t.Errorf("Apply() = %+v, want %+v", got, tt.want)
			}
			if len(got.Tags) != len(tt.want.Tags) || (len(got.Tags) > 0 && !reflect.DeepEqual(got.Tags, tt.want.Tags)) {
				t.Errorf("Apply() tags = %v, want %v", got.Tags, tt.want.Tags)
			}
			if got.ID != base.ID || got.Size != base.Size || got.ChunkCount != base.ChunkCount || !got.UploadedAt.Equal(base.UploadedAt) {
				t.Errorf("Apply() changed immutable fields: %+v", got)
			}
		})
	}
}

func TestDocumentApplyDoesNotAliasTags(t *testing.T) {
	tags := []string{"a", "b"}
	d := Document{}.Apply(DocumentUpdate{Tags: &tags})
	tags[0] = "mutated"
	if d.Tags[0] != "a" {
		t.Errorf("Expected applied tags to be copied, got %v", d.Tags)
	}
}
