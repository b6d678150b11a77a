package mssql

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/crypto/ssh"
)

// TunnelOptions configures an SSH bastion hop in front of the source.
type TunnelOptions struct {
	Host    string
	Port    int
	User    string
	KeyPath string
	// KnownHostsKey pins the bastion host key in authorized_keys format.
	// Empty accepts any host key.
	KnownHostsKey string
}

// Tunnel dials source connections through an SSH client. It satisfies the
// go-mssqldb Dialer interface.
type Tunnel struct {
	client *ssh.Client
}

// OpenTunnel authenticates to the bastion with the private key at KeyPath.
func OpenTunnel(opts TunnelOptions) (*Tunnel, error) {
	key, err := os.ReadFile(opts.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	cfg, err := clientConfig(opts, key)
	if err != nil {
		return nil, err
	}

	port := opts.Port
	if port == 0 {
		port = 22
	}
	client, err := ssh.Dial("tcp", net.JoinHostPort(opts.Host, strconv.Itoa(port)), cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", opts.Host, err)
	}
	return &Tunnel{client: client}, nil
}

func clientConfig(opts TunnelOptions, key []byte) (*ssh.ClientConfig, error) {
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if opts.KnownHostsKey != "" {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(opts.KnownHostsKey))
		if err != nil {
			return nil, fmt.Errorf("parse ssh host key: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(pub)
	}

	return &ssh.ClientConfig{
		User:            opts.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
	}, nil
}

// DialContext opens a connection to addr from the bastion.
func (t *Tunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := t.client.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("ssh tunnel to %s: %w", addr, err)
	}
	return conn, nil
}

// Close closes the SSH client and every connection dialed through it.
func (t *Tunnel) Close() error {
	return t.client.Close()
}
