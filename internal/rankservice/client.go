package rankservice

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client wraps a gRPC connection to the ranking service.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the ranking service at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection.
// Close is a no-op for such clients.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region compute
// Compute asks the service for the probability that at least n of
// probabilities succeed.
func (c *Client) Compute(ctx context.Context, probabilities []float64, n int) (float64, error) {
	var resp ComputeResponse
	if err := c.invoke(ctx, "Compute", ComputeRequest{Probabilities: probabilities, N: n}, &resp); err != nil {
		return 0, fmt.Errorf("compute rpc: %w", err)
	}
	return resp.Probability, nil
}

// #endregion compute

// #region rank
// Rank asks the service to rank a dataset.
func (c *Client) Rank(ctx context.Context, req RankRequest) (RankResponse, error) {
	var resp RankResponse
	if err := c.invoke(ctx, "Rank", req, &resp); err != nil {
		return RankResponse{}, fmt.Errorf("rank rpc: %w", err)
	}
	return resp, nil
}

// #endregion rank

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return err
	}
	return fromStruct(out, resp)
}
