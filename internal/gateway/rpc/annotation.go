package rpc

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"

	"studytutor/internal/annotation"
	"studytutor/internal/viewer"
)

const AnnotationServiceName = "studytutor.v1.AnnotationService"

const (
	procSetMode     = "/" + AnnotationServiceName + "/SetMode"
	procClickEmpty  = "/" + AnnotationServiceName + "/ClickEmpty"
	procPointerDown = "/" + AnnotationServiceName + "/PointerDown"
	procPointerMove = "/" + AnnotationServiceName + "/PointerMove"
	procPointerUp   = "/" + AnnotationServiceName + "/PointerUp"
	procDoubleClick = "/" + AnnotationServiceName + "/DoubleClick"
	procEdit        = "/" + AnnotationServiceName + "/Edit"
	procBlur        = "/" + AnnotationServiceName + "/Blur"
	procResizeStart = "/" + AnnotationServiceName + "/ResizeStart"
	procResizeMove  = "/" + AnnotationServiceName + "/ResizeMove"
	procResizeEnd   = "/" + AnnotationServiceName + "/ResizeEnd"
	procDelete      = "/" + AnnotationServiceName + "/Delete"
	procList        = "/" + AnnotationServiceName + "/List"
)

// ViewerLookup resolves the viewer whose board a call addresses.
type ViewerLookup interface {
	Get(id string) (*viewer.Viewer, error)
}

// AnnotationHandler serves the sticky-note board of every viewer.
type AnnotationHandler struct {
	viewers ViewerLookup
	log     zerolog.Logger
}

func NewAnnotationHandler(viewers ViewerLookup, log zerolog.Logger) *AnnotationHandler {
	return &AnnotationHandler{viewers: viewers, log: log}
}

// Handler returns the service path prefix and the handler serving it.
func (h *AnnotationHandler) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(procSetMode, connect.NewUnaryHandler(procSetMode, h.SetMode, opts...))
	mux.Handle(procClickEmpty, connect.NewUnaryHandler(procClickEmpty, h.ClickEmpty, opts...))
	mux.Handle(procPointerDown, connect.NewUnaryHandler(procPointerDown, h.PointerDown, opts...))
	mux.Handle(procPointerMove, connect.NewUnaryHandler(procPointerMove, h.PointerMove, opts...))
	mux.Handle(procPointerUp, connect.NewUnaryHandler(procPointerUp, h.PointerUp, opts...))
	mux.Handle(procDoubleClick, connect.NewUnaryHandler(procDoubleClick, h.DoubleClick, opts...))
	mux.Handle(procEdit, connect.NewUnaryHandler(procEdit, h.Edit, opts...))
	mux.Handle(procBlur, connect.NewUnaryHandler(procBlur, h.Blur, opts...))
	mux.Handle(procResizeStart, connect.NewUnaryHandler(procResizeStart, h.ResizeStart, opts...))
	mux.Handle(procResizeMove, connect.NewUnaryHandler(procResizeMove, h.ResizeMove, opts...))
	mux.Handle(procResizeEnd, connect.NewUnaryHandler(procResizeEnd, h.ResizeEnd, opts...))
	mux.Handle(procDelete, connect.NewUnaryHandler(procDelete, h.Delete, opts...))
	mux.Handle(procList, connect.NewUnaryHandler(procList, h.List, opts...))
	return "/" + AnnotationServiceName + "/", mux
}

func (h *AnnotationHandler) board(id string) (*viewer.Viewer, *annotation.Board, error) {
	v, err := h.viewers.Get(id)
	if err != nil {
		h.log.Debug().Err(err).Str("viewer_id", id).Msg("annotation call for unknown viewer")
		return nil, nil, toConnectError(err)
	}
	return v, v.Board(), nil
}

func (h *AnnotationHandler) SetMode(_ context.Context, req *connect.Request[SetModeRequest]) (*connect.Response[SetModeResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	b.SetMode(req.Msg.On)
	return connect.NewResponse(&SetModeResponse{On: b.Mode()}), nil
}

func (h *AnnotationHandler) ClickEmpty(_ context.Context, req *connect.Request[PointRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	a, created, err := b.ClickEmpty(req.Msg.Point)
	if err != nil {
		return nil, toConnectError(err)
	}
	out := &NoteResponse{Created: created}
	if created {
		out.Annotation = &a
		out.State = b.State(a.ID).String()
	}
	return connect.NewResponse(out), nil
}

func (h *AnnotationHandler) PointerDown(_ context.Context, req *connect.Request[PointRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	if err := b.PointerDown(req.Msg.ID, req.Msg.Point, req.Msg.eventTime()); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&NoteResponse{State: b.State(req.Msg.ID).String()}), nil
}

func (h *AnnotationHandler) PointerMove(_ context.Context, req *connect.Request[PointRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	a, moved := b.PointerMove(req.Msg.Point, req.Msg.eventTime())
	out := &NoteResponse{Changed: moved}
	if moved {
		out.Annotation = &a
	}
	return connect.NewResponse(out), nil
}

func (h *AnnotationHandler) PointerUp(_ context.Context, req *connect.Request[ViewerRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&NoteResponse{Dragged: b.PointerUp()}), nil
}

func (h *AnnotationHandler) DoubleClick(_ context.Context, req *connect.Request[NoteRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	if err := b.DoubleClick(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&NoteResponse{State: b.State(req.Msg.ID).String()}), nil
}

func (h *AnnotationHandler) Edit(_ context.Context, req *connect.Request[EditRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	a, err := b.Edit(req.Msg.ID, req.Msg.Text)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&NoteResponse{Annotation: &a, Changed: true}), nil
}

func (h *AnnotationHandler) Blur(_ context.Context, req *connect.Request[NoteRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	deleted, err := b.Blur(req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&NoteResponse{Deleted: deleted, State: b.State(req.Msg.ID).String()}), nil
}

func (h *AnnotationHandler) ResizeStart(_ context.Context, req *connect.Request[PointRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	if err := b.ResizeStart(req.Msg.ID, req.Msg.Point); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&NoteResponse{}), nil
}

func (h *AnnotationHandler) ResizeMove(_ context.Context, req *connect.Request[PointRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	a, resized := b.ResizeMove(req.Msg.Point)
	out := &NoteResponse{Changed: resized}
	if resized {
		out.Annotation = &a
	}
	return connect.NewResponse(out), nil
}

func (h *AnnotationHandler) ResizeEnd(_ context.Context, req *connect.Request[ViewerRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	b.ResizeEnd()
	return connect.NewResponse(&NoteResponse{}), nil
}

func (h *AnnotationHandler) Delete(_ context.Context, req *connect.Request[NoteRequest]) (*connect.Response[NoteResponse], error) {
	_, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	if err := b.Delete(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&NoteResponse{Deleted: true}), nil
}

func (h *AnnotationHandler) List(_ context.Context, req *connect.Request[ListRequest]) (*connect.Response[ListResponse], error) {
	v, b, err := h.board(req.Msg.ViewerID)
	if err != nil {
		return nil, err
	}
	page := v.Snapshot().CurrentFile
	if req.Msg.FileIndex != nil {
		page = *req.Msg.FileIndex
	}
	return connect.NewResponse(&ListResponse{Annotations: b.List(page)}), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, viewer.ErrNotFound), errors.Is(err, annotation.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, annotation.ErrModeOff):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
