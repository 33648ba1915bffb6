package server

import (
	"context"
	"log/slog"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// session is one client connection. Replies, diagnostics and open-document
// notifications go to the session the triggering message came from.
type session struct {
	conn   jsonrpc2.Conn
	client protocol.Client
}

type sessionKey struct{}

type yieldKey struct{}

func withSession(ctx context.Context, sess *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFrom(ctx context.Context) (*session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*session)
	return sess, ok && sess != nil
}

// handler dispatches the messages of one connection to s.
func (s *ServerImpl) handler() jsonrpc2.Handler {
	return protocol.CancelHandler(
		sequential(
			jsonrpc2.ReplyHandler(
				protocol.ServerHandler(s, jsonrpc2.MethodNotFoundHandler),
			),
		),
	)
}

// sequential runs messages one at a time in arrival order, like
// jsonrpc2.AsyncHandler. A message normally holds the queue until it replies;
// calling yield from its handler lets the messages behind it start while it keeps
// running. A request waiting for a document the client still has to send must
// yield, or the didOpen carrying it could never be handled.
func sequential(handler jsonrpc2.Handler) jsonrpc2.Handler {
	next := make(chan struct{})
	close(next)

	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		previous := next
		next = make(chan struct{})
		unlock := next

		var once sync.Once
		release := func() { once.Do(func() { close(unlock) }) }
		ctx = context.WithValue(ctx, yieldKey{}, release)

		go func() {
			defer release()
			<-previous
			err := handler(ctx, func(ctx context.Context, result interface{}, err error) error {
				release()
				return reply(ctx, result, err)
			}, req)
			if err != nil {
				slog.Error("Message handling failed", "method", req.Method(), "error", err)
			}
		}()
		return nil
	}
}

// yield releases the message queue held by the request running in ctx. Outside a
// connection it does nothing.
func yield(ctx context.Context) {
	if release, ok := ctx.Value(yieldKey{}).(func()); ok {
		release()
	}
}
