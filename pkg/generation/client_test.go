package generation

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

type echoServer struct {
	gotRequest *Request
	gotAuth    []string
}

func (s *echoServer) Generate(req *Request, stream AnswerSender) error {
	s.gotRequest = req
	if md, ok := metadata.FromIncomingContext(stream.Context()); ok {
		s.gotAuth = md.Get("authorization")
	}

	for i, p := range req.Prompt {
		if p.Artifact == nil {
			continue
		}
		err := stream.Send(&Answer{
			AnswerID:  "answer",
			RequestID: req.RequestID,
			Artifacts: []*Artifact{{
				ID:     uint64(i + 1),
				Type:   ArtifactImage,
				Mime:   "image/png",
				Binary: p.Artifact.Binary,
			}},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func startEchoServer(t *testing.T) (*echoServer, *Client) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(ServerCodec())
	fake := &echoServer{}
	RegisterGenerationServer(srv, fake)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	client, err := Dial("passthrough:///bufnet",
		WithInsecure(),
		WithAPIKey("sk-test"),
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return fake, client
}

func TestClientGenerateStreamsAnswers(t *testing.T) {
	fake, client := startEchoServer(t)

	req := &Request{
		EngineID:  "transform-server-v1",
		RequestID: "req-1",
		Prompt: []*Prompt{
			{Parameters: &PromptParameters{Init: true}, Artifact: &Artifact{Type: ArtifactImage, Binary: []byte("first")}},
			{Parameters: &PromptParameters{Init: true}, Artifact: &Artifact{Type: ArtifactImage, Binary: []byte("second")}},
		},
		Image: &ImageParameters{Transform: &TransformType{Sequence: &TransformSequence{
			Operations: []*TransformOperation{
				{Warp2D: &TransformWarp2D{BorderMode: BorderWrap, Rotate: 15, Scale: 1.25, TranslateX: 3, TranslateY: -4}},
			},
		}}},
	}

	stream, err := client.Generate(context.Background(), req)
	require.NoError(t, err)

	var payloads []string
	for {
		answer, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		for _, a := range answer.Artifacts {
			payloads = append(payloads, string(a.Binary))
		}
	}

	assert.Equal(t, []string{"first", "second"}, payloads)
	assert.Equal(t, []string{"Bearer sk-test"}, fake.gotAuth)

	require.NotNil(t, fake.gotRequest)
	assert.Equal(t, "transform-server-v1", fake.gotRequest.EngineID)
	require.Len(t, fake.gotRequest.Prompt, 2)
	assert.True(t, fake.gotRequest.Prompt[0].Parameters.Init)

	ops := fake.gotRequest.Image.Transform.Sequence.Operations
	require.Len(t, ops, 1)
	assert.Equal(t, "warp2d", ops[0].Kind())
	assert.Equal(t, TransformWarp2D{BorderMode: BorderWrap, Rotate: 15, Scale: 1.25, TranslateX: 3, TranslateY: -4}, *ops[0].Warp2D)
}

func TestDialRequiresAddress(t *testing.T) {
	_, err := Dial("  ")
	require.Error(t, err)
}
