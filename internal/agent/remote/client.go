// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package remote streams agent chunks from a gRPC agent bridge.
//
// The bridge exposes one server-streaming method. The request is a Struct carrying
// {"input": prompt}; every response is a Struct holding one chunk mapping with the
// same keys a local agent produces (actions, steps, output).
package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"askdb/cli/internal/agent"
)

// StreamMethod is the full name of the bridge's streaming method.
const StreamMethod = "/askdb.agent.v1.AgentBridge/Stream"

// Client implements agent.Agent over a gRPC connection.
type Client struct {
	conn  *grpc.ClientConn
	token string
}

var _ agent.Agent = (*Client)(nil)

// Dial creates a client for endpoint. Endpoints starting with http:// use a plaintext
// connection; anything else uses TLS with the host as server name and port 443 when
// none is given. The token, when set, is sent as a bearer authorization header.
func Dial(endpoint, token string, opts ...grpc.DialOption) (*Client, error) {
	target, creds := transportFor(endpoint)
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial agent bridge %s: %w", endpoint, err)
	}
	return &Client{conn: conn, token: token}, nil
}

// New wraps an existing connection.
func New(conn *grpc.ClientConn, token string) *Client {
	return &Client{conn: conn, token: token}
}

func transportFor(endpoint string) (string, credentials.TransportCredentials) {
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		return rest, insecure.NewCredentials()
	}
	addr := strings.TrimPrefix(endpoint, "https://")
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	} else {
		addr = net.JoinHostPort(addr, "443")
	}
	return addr, credentials.NewTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
}

// Stream sends the prompt and yields every chunk the bridge returns. A clean end of
// stream finishes the sequence; any other failure is yielded as "code: message".
func (c *Client) Stream(ctx context.Context, prompt string) iter.Seq2[agent.Chunk, error] {
	return func(yield func(agent.Chunk, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		if c.token != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
		}

		cs, err := c.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, StreamMethod)
		if err != nil {
			yield(nil, statusError(err))
			return
		}
		stream := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: cs}

		req, err := structpb.NewStruct(map[string]any{"input": prompt})
		if err != nil {
			yield(nil, err)
			return
		}
		// io.EOF from Send means the server already ended the call; Recv reports why.
		if err := stream.Send(req); err != nil && !errors.Is(err, io.EOF) {
			yield(nil, statusError(err))
			return
		}
		if err := stream.CloseSend(); err != nil {
			yield(nil, statusError(err))
			return
		}

		for {
			msg, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, statusError(err))
				return
			}
			if !yield(agent.Chunk(msg.AsMap()), nil) {
				return
			}
		}
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func statusError(err error) error {
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s: %s", st.Code().String(), st.Message())
	}
	return err
}
