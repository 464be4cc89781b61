// Package grpcapi exposes document operations over gRPC with a JSON codec.
package grpcapi

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-script-editor-service/internal/schema"
	"ai-script-editor-service/internal/service/document"
	"ai-script-editor-service/internal/service/external"
	"ai-script-editor-service/internal/service/fingerprint"
	"ai-script-editor-service/internal/service/patch"
	"ai-script-editor-service/internal/service/session"
	"ai-script-editor-service/internal/store"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ai.script.editor.EditorService"

type GetDocumentRequest struct {
	ScriptID int64 `json:"scriptId"`
}

type ApplyPatchRequest struct {
	ScriptID   int64             `json:"scriptId"`
	Operations []patch.Operation `json:"operations"`
}

type ApplyPatchResponse struct {
	Touched  []string        `json:"touched"`
	Skipped  int             `json:"skipped"`
	Outcomes []patch.Outcome `json:"outcomes"`
	Version  uint64          `json:"version"`
}

type RenderMarkupRequest struct {
	ScriptID int64  `json:"scriptId"`
	Scope    string `json:"scope"` // selection (default) or document
}

type RenderMarkupResponse struct {
	SSML        string `json:"ssml"`
	Fingerprint string `json:"fingerprint"`
}

// EditorServiceServer is the service implementation contract.
type EditorServiceServer interface {
	GetDocument(context.Context, *GetDocumentRequest) (*document.Snapshot, error)
	ApplyPatch(context.Context, *ApplyPatchRequest) (*ApplyPatchResponse, error)
	RenderMarkup(context.Context, *RenderMarkupRequest) (*RenderMarkupResponse, error)
}

type Server struct {
	sessions  *session.Manager
	validator *schema.Validator
}

func Register(g *grpc.Server, sessions *session.Manager) *Server {
	s := &Server{
		sessions:  sessions,
		validator: schema.New(),
	}
	g.RegisterService(&serviceDesc, s)
	return s
}

func (s *Server) GetDocument(ctx context.Context, req *GetDocumentRequest) (*document.Snapshot, error) {
	sess, err := s.sessions.Open(ctx, req.ScriptID)
	if err != nil {
		return nil, toStatus(err)
	}
	snap := sess.Snapshot()
	return &snap, nil
}

func (s *Server) ApplyPatch(ctx context.Context, req *ApplyPatchRequest) (*ApplyPatchResponse, error) {
	if err := s.validator.Validate(req.Operations); err != nil {
		return nil, toStatus(err)
	}
	sess, err := s.sessions.Open(ctx, req.ScriptID)
	if err != nil {
		return nil, toStatus(err)
	}
	res, snap := sess.ApplyPatch(ctx, req.Operations)
	return &ApplyPatchResponse{
		Touched:  res.Touched,
		Skipped:  res.Skipped,
		Outcomes: res.Outcomes,
		Version:  snap.Version,
	}, nil
}

func (s *Server) RenderMarkup(ctx context.Context, req *RenderMarkupRequest) (*RenderMarkupResponse, error) {
	target := session.RenderSelection
	switch req.Scope {
	case "", "selection":
	case "document":
		target = session.RenderDocument
	default:
		return nil, status.Errorf(codes.InvalidArgument, "invalid scope %q", req.Scope)
	}
	sess, err := s.sessions.Open(ctx, req.ScriptID)
	if err != nil {
		return nil, toStatus(err)
	}
	var fp string
	sess.View(func(d *document.Document) { fp = fingerprint.Of(d.Stripped()) })
	return &RenderMarkupResponse{SSML: sess.SSML(target), Fingerprint: fp}, nil
}

func toStatus(err error) error {
	switch {
	case schema.IsValidationError(err), errors.Is(err, patch.ErrInvalidPatch):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, document.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, session.ErrStaleResponse):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, external.ErrMissingCredential):
		return status.Error(codes.Unauthenticated, err.Error())
	case external.IsRetryable(err):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func getDocumentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetDocumentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EditorServiceServer).GetDocument(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetDocument"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EditorServiceServer).GetDocument(ctx, req.(*GetDocumentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func applyPatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ApplyPatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EditorServiceServer).ApplyPatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ApplyPatch"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EditorServiceServer).ApplyPatch(ctx, req.(*ApplyPatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func renderMarkupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RenderMarkupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EditorServiceServer).RenderMarkup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/RenderMarkup"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EditorServiceServer).RenderMarkup(ctx, req.(*RenderMarkupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EditorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDocument", Handler: getDocumentHandler},
		{MethodName: "ApplyPatch", Handler: applyPatchHandler},
		{MethodName: "RenderMarkup", Handler: renderMarkupHandler},
	},
	Streams: []grpc.StreamDesc{},
}
