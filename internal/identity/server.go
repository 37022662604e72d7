package identity

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/pkg/clog"
)

// Server exposes an Authenticator as the IdentityService.
type Server struct {
	auth Authenticator
}

func NewServer(auth Authenticator) *Server {
	return &Server{auth: auth}
}

func (s *Server) SignIn(ctx context.Context, req *connect.Request[SignInRequest]) (*connect.Response[CredentialsResponse], error) {
	creds, err := s.auth.SignIn(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		return nil, err
	}
	clog.AddAttribute(ctx, "uid", creds.User.UID)
	return connect.NewResponse(&CredentialsResponse{Credentials: creds}), nil
}

func (s *Server) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[CredentialsResponse], error) {
	creds, err := s.auth.Register(ctx, req.Msg.Email, req.Msg.Password, req.Msg.DisplayName)
	if err != nil {
		return nil, err
	}
	clog.AddAttribute(ctx, "uid", creds.User.UID)
	return connect.NewResponse(&CredentialsResponse{Credentials: creds}), nil
}

func (s *Server) SignOut(ctx context.Context, req *connect.Request[TokenRequest]) (*connect.Response[SignOutResponse], error) {
	if err := s.auth.SignOut(ctx, req.Msg.Token); err != nil {
		return nil, err
	}
	return connect.NewResponse(&SignOutResponse{}), nil
}

func (s *Server) Verify(ctx context.Context, req *connect.Request[TokenRequest]) (*connect.Response[VerifyResponse], error) {
	u, err := s.auth.Verify(ctx, req.Msg.Token)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&VerifyResponse{User: u}), nil
}

func (s *Server) Users(ctx context.Context, req *connect.Request[UsersRequest]) (*connect.Response[UsersResponse], error) {
	users, err := s.auth.Users(ctx, req.Msg.UIDs)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&UsersResponse{Users: users}), nil
}

func NewIdentityServiceHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{gateway.WithJSONCodec()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(IdentityServiceSignInProcedure, connect.NewUnaryHandler(IdentityServiceSignInProcedure, s.SignIn, opts...))
	mux.Handle(IdentityServiceRegisterProcedure, connect.NewUnaryHandler(IdentityServiceRegisterProcedure, s.Register, opts...))
	mux.Handle(IdentityServiceSignOutProcedure, connect.NewUnaryHandler(IdentityServiceSignOutProcedure, s.SignOut, opts...))
	mux.Handle(IdentityServiceVerifyProcedure, connect.NewUnaryHandler(IdentityServiceVerifyProcedure, s.Verify, opts...))
	mux.Handle(IdentityServiceUsersProcedure, connect.NewUnaryHandler(IdentityServiceUsersProcedure, s.Users, opts...))
	return "/" + IdentityServiceName + "/", mux
}
