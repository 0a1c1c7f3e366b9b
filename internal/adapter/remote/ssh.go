// Package remote executes the DR restore trigger over SSH. The
// adapter reports the remote exit status and nothing else; restore
// semantics live entirely on the DR host.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

type SSHInvoker struct {
	knownHostsFile string
	dialTimeout    time.Duration
}

type Option func(*SSHInvoker)

// WithKnownHosts pins remote host keys against an OpenSSH
// known_hosts file. Without it the channel trusts any host key, which
// is only acceptable on an isolated replication network.
func WithKnownHosts(path string) Option {
	return func(s *SSHInvoker) { s.knownHostsFile = path }
}

func NewSSH(opts ...Option) *SSHInvoker {
	s := &SSHInvoker{dialTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SSHInvoker) Invoke(ctx context.Context, site domain.RemoteSite, command string) (int, error) {
	clientConfig, err := s.clientConfig(site)
	if err != nil {
		return -1, err
	}

	addr := net.JoinHostPort(site.Host, strconv.Itoa(site.Port))
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return -1, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	// Tear the connection down when the stage deadline fires so a
	// hung remote command cannot wedge the run.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-done:
		}
	}()

	if err := session.Run(command); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return -1, ctxErr
		}

		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus(), nil
		}
		return -1, fmt.Errorf("remote command failed: %w", err)
	}

	return 0, nil
}

func (s *SSHInvoker) clientConfig(site domain.RemoteSite) (*ssh.ClientConfig, error) {
	key, err := os.ReadFile(site.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if s.knownHostsFile != "" {
		hostKeyCallback, err = knownhosts.New(s.knownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            site.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.dialTimeout,
	}, nil
}
