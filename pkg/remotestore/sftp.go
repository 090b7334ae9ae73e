package remotestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPConfig holds credentials for an SFTP drop location.
type SFTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	KnownHostsFile string
	DialTimeout    time.Duration
}

type sftpConnector struct {
	cfg SFTPConfig
}

// NewSFTPConnector returns a connector that opens one SSH connection per session.
// Without a known_hosts file the server key is not verified.
func NewSFTPConnector(cfg SFTPConfig) Connector {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	return &sftpConnector{cfg: cfg}
}

func (c *sftpConnector) Driver() string {
	return DriverSFTP
}

func (c *sftpConnector) Connect(ctx context.Context) (Session, error) {
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if c.cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(c.cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	sshCfg := &ssh.ClientConfig{
		User:            c.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(c.cfg.Password)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.cfg.DialTimeout,
	}

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("failed to start sftp subsystem: %w", err)
	}

	return &sftpSession{ssh: sshClient, client: client}, nil
}

type sftpSession struct {
	ssh    *ssh.Client
	client *sftp.Client
}

func (s *sftpSession) List(_ context.Context, dir string) ([]Entry, error) {
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, wrapNotExist(err, dir)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		})
	}
	return entries, nil
}

func (s *sftpSession) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := s.client.Open(p)
	if err != nil {
		return nil, wrapNotExist(err, p)
	}
	return f, nil
}

func (s *sftpSession) Mkdir(_ context.Context, dir string) error {
	err := s.client.Mkdir(dir)
	if err == nil {
		return nil
	}
	// Servers report an existing directory as a generic failure, so confirm with a stat.
	if info, statErr := s.client.Stat(dir); statErr == nil && info.IsDir() {
		return nil
	}
	return fmt.Errorf("failed to create %s: %w", dir, err)
}

func (s *sftpSession) Remove(_ context.Context, p string) error {
	err := s.client.Remove(p)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to remove %s: %w", p, err)
}

func (s *sftpSession) Rename(_ context.Context, oldPath, newPath string) error {
	if err := s.client.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", oldPath, newPath, wrapNotExist(err, oldPath))
	}
	return nil
}

func (s *sftpSession) Close() error {
	return errors.Join(s.client.Close(), s.ssh.Close())
}

func wrapNotExist(err error, p string) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", p, ErrNotExist)
	}
	return err
}
