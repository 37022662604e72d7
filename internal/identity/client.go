package identity

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/pkg/cerr"
)

// Client is an Authenticator backed by a remote IdentityService.
type Client struct {
	signIn   *connect.Client[SignInRequest, CredentialsResponse]
	register *connect.Client[RegisterRequest, CredentialsResponse]
	signOut  *connect.Client[TokenRequest, SignOutResponse]
	verify   *connect.Client[TokenRequest, VerifyResponse]
	users    *connect.Client[UsersRequest, UsersResponse]
}

var _ Authenticator = (*Client)(nil)

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		gateway.WithJSONCodec(),
		connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor()),
	}, opts...)
	return &Client{
		signIn:   connect.NewClient[SignInRequest, CredentialsResponse](httpClient, baseURL+IdentityServiceSignInProcedure, opts...),
		register: connect.NewClient[RegisterRequest, CredentialsResponse](httpClient, baseURL+IdentityServiceRegisterProcedure, opts...),
		signOut:  connect.NewClient[TokenRequest, SignOutResponse](httpClient, baseURL+IdentityServiceSignOutProcedure, opts...),
		verify:   connect.NewClient[TokenRequest, VerifyResponse](httpClient, baseURL+IdentityServiceVerifyProcedure, opts...),
		users:    connect.NewClient[UsersRequest, UsersResponse](httpClient, baseURL+IdentityServiceUsersProcedure, opts...),
	}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	resp, err := c.signIn.CallUnary(ctx, connect.NewRequest(&SignInRequest{Email: email, Password: password}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Credentials, nil
}

func (c *Client) Register(ctx context.Context, email, password, displayName string) (*Credentials, error) {
	resp, err := c.register.CallUnary(ctx, connect.NewRequest(&RegisterRequest{Email: email, Password: password, DisplayName: displayName}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Credentials, nil
}

func (c *Client) SignOut(ctx context.Context, token string) error {
	_, err := c.signOut.CallUnary(ctx, connect.NewRequest(&TokenRequest{Token: token}))
	return err
}

func (c *Client) Verify(ctx context.Context, token string) (*User, error) {
	resp, err := c.verify.CallUnary(ctx, connect.NewRequest(&TokenRequest{Token: token}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.User, nil
}

func (c *Client) Users(ctx context.Context, uids []string) ([]User, error) {
	resp, err := c.users.CallUnary(ctx, connect.NewRequest(&UsersRequest{UIDs: uids}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Users, nil
}
