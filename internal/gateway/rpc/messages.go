package rpc

import (
	"time"

	"studytutor/internal/annotation"
)

type SetModeRequest struct {
	ViewerID string `json:"viewerId"`
	On       bool   `json:"on"`
}

type SetModeResponse struct {
	On bool `json:"on"`
}

// PointRequest addresses a pointer event, optionally on one annotation.
// At is the client event time in Unix milliseconds; zero means the time the
// request arrives.
type PointRequest struct {
	ViewerID string           `json:"viewerId"`
	ID       string           `json:"id,omitempty"`
	Point    annotation.Point `json:"point"`
	At       int64            `json:"at,omitempty"`
}

func (r *PointRequest) eventTime() time.Time {
	if r.At == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.At)
}

type NoteRequest struct {
	ViewerID string `json:"viewerId"`
	ID       string `json:"id"`
}

type EditRequest struct {
	ViewerID string `json:"viewerId"`
	ID       string `json:"id"`
	Text     string `json:"text"`
}

type ViewerRequest struct {
	ViewerID string `json:"viewerId"`
}

type ListRequest struct {
	ViewerID string `json:"viewerId"`
	// FileIndex defaults to the document currently shown.
	FileIndex *int `json:"fileIndex,omitempty"`
}

type NoteResponse struct {
	Annotation *annotation.Annotation `json:"annotation,omitempty"`
	Created    bool                   `json:"created,omitempty"`
	Changed    bool                   `json:"changed,omitempty"`
	Deleted    bool                   `json:"deleted,omitempty"`
	Dragged    bool                   `json:"dragged,omitempty"`
	State      string                 `json:"state,omitempty"`
}

type ListResponse struct {
	Annotations []annotation.Annotation `json:"annotations"`
}
