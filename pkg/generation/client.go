package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	ServiceName    = "gooseai.GenerationService"
	generateMethod = "/" + ServiceName + "/Generate"
)

// AnswerStream yields Generate responses in arrival order. Recv returns
// io.EOF once the server has finished.
type AnswerStream interface {
	Recv() (*Answer, error)
}

type Client struct {
	conn *grpc.ClientConn
}

type dialOptions struct {
	apiKey   string
	insecure bool
	extra    []grpc.DialOption
}

type Option func(*dialOptions)

// WithAPIKey attaches the key as a bearer token to every call.
func WithAPIKey(key string) Option {
	return func(o *dialOptions) {
		o.apiKey = strings.TrimSpace(key)
	}
}

// WithInsecure disables TLS. Intended for local engines and tests.
func WithInsecure() Option {
	return func(o *dialOptions) {
		o.insecure = true
	}
}

func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *dialOptions) {
		o.extra = append(o.extra, opts...)
	}
}

func Dial(addr string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("generation address is required")
	}

	var o dialOptions
	for _, opt := range opts {
		opt(&o)
	}

	dialOpts := make([]grpc.DialOption, 0, len(o.extra)+2)
	if o.insecure {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	if o.apiKey != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(bearerToken{
			token:      o.apiKey,
			requireTLS: !o.insecure,
		}))
	}
	dialOpts = append(dialOpts, o.extra...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create grpc client for %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Generate sends req and returns the server's answer stream. The call waits
// for the connection to become ready instead of failing fast.
func (c *Client) Generate(ctx context.Context, req *Request) (AnswerStream, error) {
	desc := &grpc.StreamDesc{StreamName: "Generate", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, generateMethod,
		grpc.ForceCodec(wireCodec{}),
		grpc.WaitForReady(true),
	)
	if err != nil {
		return nil, fmt.Errorf("open generate stream: %w", err)
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, fmt.Errorf("send generate request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("close generate send: %w", err)
	}
	return &answerStream{stream: stream}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

type answerStream struct {
	stream grpc.ClientStream
}

func (s *answerStream) Recv() (*Answer, error) {
	m := new(Answer)
	if err := s.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type bearerToken struct {
	token      string
	requireTLS bool
}

func (t bearerToken) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + t.token}, nil
}

func (t bearerToken) RequireTransportSecurity() bool {
	return t.requireTLS
}
