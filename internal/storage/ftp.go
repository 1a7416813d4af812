// Package storage holds the remote blob tier for rendered collages.
package storage

import (
	"bytes"
	"context"
	"io"
	"net"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kyiv-estate/rentscout/internal/retry"
)

// FTPOptions configures the FTP blob store.
type FTPOptions struct {
	Addr       string // host or host:port, port 21 assumed
	User       string
	Password   string
	PublicBase string // HTTP base the FTP root is served under
	Timeout    time.Duration
}

// FTPStore uploads collage artifacts to an FTP server whose document root is
// also exposed over HTTP. Public URLs are <PublicBase>/<folder>/<name>; a
// connection is dialed per call, matching the short-lived single-file usage.
type FTPStore struct {
	opts FTPOptions
}

// NewFTPStore creates an FTPStore with the given options.
func NewFTPStore(opts FTPOptions) *FTPStore {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if _, _, err := net.SplitHostPort(opts.Addr); err != nil {
		opts.Addr = net.JoinHostPort(opts.Addr, "21")
	}
	opts.PublicBase = strings.TrimRight(opts.PublicBase, "/")
	return &FTPStore{opts: opts}
}

func (s *FTPStore) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(s.opts.Addr, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	if err := conn.Login(s.opts.User, s.opts.Password); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}
	return conn, nil
}

func (s *FTPStore) policy(operation string) retry.Policy {
	p := retry.Default()
	p.OnRetry = retry.Logged("ftp", operation)
	return p
}

// Upload stores data as <folder>/<name> and returns its public URL. If an
// entry with that exact name already exists in the folder the upload is
// skipped and the existing object's URL is returned, so concurrent
// materializations of one slug converge on a single artifact. Transient
// server replies are retried on a fresh connection.
func (s *FTPStore) Upload(ctx context.Context, data []byte, name, folder string) (string, error) {
	return retry.DoVal(ctx, s.policy("upload"), func(ctx context.Context) (string, error) {
		return s.upload(ctx, data, name, folder)
	})
}

func (s *FTPStore) upload(ctx context.Context, data []byte, name, folder string) (string, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Quit()

	if err := conn.ChangeDir(folder); err != nil {
		if err := conn.MakeDir(folder); err != nil {
			return "", eris.Wrapf(err, "ftp mkdir %s", folder)
		}
		if err := conn.ChangeDir(folder); err != nil {
			return "", eris.Wrapf(err, "ftp cwd %s", folder)
		}
	}

	names, err := conn.NameList(".")
	if err != nil {
		return "", eris.Wrap(err, "ftp list")
	}
	for _, existing := range names {
		if path.Base(existing) == name {
			zap.L().Debug("storage: artifact already uploaded", zap.String("name", name))
			return s.PublicURL(name, folder), nil
		}
	}

	if err := conn.Stor(name, bytes.NewReader(data)); err != nil {
		return "", eris.Wrapf(err, "ftp store %s", name)
	}
	zap.L().Info("storage: uploaded artifact",
		zap.String("name", name), zap.String("folder", folder), zap.Int("bytes", len(data)))
	return s.PublicURL(name, folder), nil
}

// Download retrieves an object by its public URL.
func (s *FTPStore) Download(ctx context.Context, ref string) ([]byte, error) {
	key, err := s.Key(ref)
	if err != nil {
		return nil, err
	}
	return retry.DoVal(ctx, s.policy("download"), func(ctx context.Context) ([]byte, error) {
		return s.download(ctx, key)
	})
}

func (s *FTPStore) download(ctx context.Context, key string) ([]byte, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	resp, err := conn.Retr(key)
	if err != nil {
		return nil, eris.Wrapf(err, "ftp retrieve %s", key)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrapf(err, "ftp read %s", key)
	}
	return data, nil
}

// PublicURL returns the HTTP URL an uploaded object is served under.
func (s *FTPStore) PublicURL(name, folder string) string {
	return s.opts.PublicBase + "/" + folder + "/" + name
}

// Key maps a public URL back to the server-side path.
func (s *FTPStore) Key(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, s.opts.PublicBase+"/")
	if !ok || key == "" {
		return "", eris.Errorf("url %q is outside public base %q", ref, s.opts.PublicBase)
	}
	return key, nil
}
