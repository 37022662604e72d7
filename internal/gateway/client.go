package gateway

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/kazz187/collabspace/pkg/cerr"
)

// Client is a Gateway backed by a remote DocumentService.
type Client struct {
	insert *connect.Client[InsertRequest, InsertResponse]
	get    *connect.Client[GetRequest, GetResponse]
	query  *connect.Client[QueryRequest, QueryResponse]
	update *connect.Client[UpdateRequest, UpdateResponse]
}

var _ Gateway = (*Client)(nil)

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		WithJSONCodec(),
		connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor()),
	}, opts...)
	return &Client{
		insert: connect.NewClient[InsertRequest, InsertResponse](httpClient, baseURL+DocumentServiceInsertProcedure, opts...),
		get:    connect.NewClient[GetRequest, GetResponse](httpClient, baseURL+DocumentServiceGetProcedure, opts...),
		query:  connect.NewClient[QueryRequest, QueryResponse](httpClient, baseURL+DocumentServiceQueryProcedure, opts...),
		update: connect.NewClient[UpdateRequest, UpdateResponse](httpClient, baseURL+DocumentServiceUpdateProcedure, opts...),
	}
}

func (c *Client) Insert(ctx context.Context, collection string, fields Fields) (string, error) {
	resp, err := c.insert.CallUnary(ctx, connect.NewRequest(&InsertRequest{Collection: collection, Fields: fields}))
	if err != nil {
		return "", err
	}
	return resp.Msg.ID, nil
}

func (c *Client) Get(ctx context.Context, collection, id string) (*Document, bool, error) {
	resp, err := c.get.CallUnary(ctx, connect.NewRequest(&GetRequest{Collection: collection, ID: id}))
	if err != nil {
		return nil, false, err
	}
	if !resp.Msg.Found || resp.Msg.Document == nil {
		return nil, false, nil
	}
	return resp.Msg.Document, true, nil
}

func (c *Client) Query(ctx context.Context, collection string, pred Predicate) ([]*Document, error) {
	resp, err := c.query.CallUnary(ctx, connect.NewRequest(&QueryRequest{Collection: collection, Predicate: pred}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Documents, nil
}

func (c *Client) Update(ctx context.Context, collection, id string, fields Fields) error {
	_, err := c.update.CallUnary(ctx, connect.NewRequest(&UpdateRequest{Collection: collection, ID: id, Fields: fields}))
	return err
}
