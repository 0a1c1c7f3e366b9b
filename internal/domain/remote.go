package domain

import "context"

// RemoteSite describes the DR endpoint. Read-only configuration, not
// mutated by the pipeline.
type RemoteSite struct {
	Host    string
	Port    int
	User    string
	KeyFile string
}

// RemoteInvoker executes a command on the DR site over an
// authenticated channel and reports its exit status. It does not
// interpret restore-specific semantics.
type RemoteInvoker interface {
	Invoke(ctx context.Context, site RemoteSite, command string) (int, error)
}
