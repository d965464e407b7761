package models

import "time"

// DocType is the declared source format of an uploaded document.
type DocType string

const (
	DocTypePDF      DocType = "pdf"
	DocTypeMarkdown DocType = "markdown"
	DocTypeText     DocType = "text"
	DocTypeHTML     DocType = "html"
	DocTypeDOCX     DocType = "docx"
)

// Source records how a document entered the store. Only indexer documents
// are replaced when their file is indexed again.
type Source string

const (
	SourceUpload  Source = "upload"
	SourceIndexer Source = "indexer"
)

type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename"`
	Type       DocType   `json:"type"`
	Source     Source    `json:"source"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum,omitempty"`
	ChunkCount int       `json:"chunkCount"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// DocumentUpdate carries the editable metadata of a document. Nil fields
// are left untouched by Apply.
type DocumentUpdate struct {
	Name     *string   `json:"name,omitempty"`
	Category *string   `json:"category,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

// Apply returns a copy of d with every non-nil field of u written over it.
func (d Document) Apply(u DocumentUpdate) Document {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Category != nil {
		d.Category = *u.Category
	}
	if u.Tags != nil {
		d.Tags = append([]string(nil), (*u.Tags)...)
	}
	return d
}

type Chunk struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"documentId"`
	Content    string   `json:"content"`
	Position   int      `json:"position"`
	Keywords   []string `json:"keywords"`
}

type SearchResult struct {
	ChunkID      string  `json:"chunkId"`
	DocumentID   string  `json:"documentId"`
	DocumentName string  `json:"documentName"`
	Content      string  `json:"content"`
	Position     int     `json:"position"`
	Score        float64 `json:"score"`
	Rank         int     `json:"rank"`
}
