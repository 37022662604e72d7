package gateway

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/kazz187/collabspace/pkg/cerr"
)

// Server exposes a Gateway as the DocumentService.
type Server struct {
	gw      Gateway
	private map[string]bool
}

type ServerOption func(*Server)

// WithPrivateCollections hides collections that only server-side components
// may touch, such as user accounts.
func WithPrivateCollections(names ...string) ServerOption {
	return func(s *Server) {
		for _, n := range names {
			s.private[n] = true
		}
	}
}

func NewServer(gw Gateway, opts ...ServerOption) *Server {
	s := &Server{gw: gw, private: map[string]bool{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) checkCollection(collection string) error {
	if s.private[collection] {
		return cerr.NewError(cerr.PermissionDenied, fmt.Sprintf("collection %q is not accessible", collection), nil)
	}
	return nil
}

func (s *Server) Insert(ctx context.Context, req *connect.Request[InsertRequest]) (*connect.Response[InsertResponse], error) {
	if err := s.checkCollection(req.Msg.Collection); err != nil {
		return nil, err
	}
	id, err := s.gw.Insert(ctx, req.Msg.Collection, req.Msg.Fields)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&InsertResponse{ID: id}), nil
}

func (s *Server) Get(ctx context.Context, req *connect.Request[GetRequest]) (*connect.Response[GetResponse], error) {
	if err := s.checkCollection(req.Msg.Collection); err != nil {
		return nil, err
	}
	doc, found, err := s.gw.Get(ctx, req.Msg.Collection, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetResponse{Document: doc, Found: found}), nil
}

func (s *Server) Query(ctx context.Context, req *connect.Request[QueryRequest]) (*connect.Response[QueryResponse], error) {
	if err := s.checkCollection(req.Msg.Collection); err != nil {
		return nil, err
	}
	docs, err := s.gw.Query(ctx, req.Msg.Collection, req.Msg.Predicate)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*Document{}
	}
	return connect.NewResponse(&QueryResponse{Documents: docs}), nil
}

func (s *Server) Update(ctx context.Context, req *connect.Request[UpdateRequest]) (*connect.Response[UpdateResponse], error) {
	if err := s.checkCollection(req.Msg.Collection); err != nil {
		return nil, err
	}
	if err := s.gw.Update(ctx, req.Msg.Collection, req.Msg.ID, req.Msg.Fields); err != nil {
		return nil, err
	}
	return connect.NewResponse(&UpdateResponse{}), nil
}

// NewDocumentServiceHandler mounts the service the same way generated Connect
// code does: the returned path is the mux prefix.
func NewDocumentServiceHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSONCodec()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(DocumentServiceInsertProcedure, connect.NewUnaryHandler(DocumentServiceInsertProcedure, s.Insert, opts...))
	mux.Handle(DocumentServiceGetProcedure, connect.NewUnaryHandler(DocumentServiceGetProcedure, s.Get, opts...))
	mux.Handle(DocumentServiceQueryProcedure, connect.NewUnaryHandler(DocumentServiceQueryProcedure, s.Query, opts...))
	mux.Handle(DocumentServiceUpdateProcedure, connect.NewUnaryHandler(DocumentServiceUpdateProcedure, s.Update, opts...))
	return "/" + DocumentServiceName + "/", mux
}
