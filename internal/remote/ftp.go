// Package remote pulls plan XML exports from a TPA's FTP drop directory.
package remote

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options configures the FTP client.
type Options struct {
	Host     string // host or host:port; port 21 when omitted
	User     string
	Password string
	Dir      string // remote drop directory
	Timeout  time.Duration
}

// Client downloads plan exports over FTP.
type Client struct {
	opts  Options
	retry retryConfig
}

// New creates a Client. Anonymous login is used when no user is configured.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	if opts.Dir == "" {
		opts.Dir = "/"
	}
	return &Client{opts: opts, retry: defaultRetry()}
}

func (c *Client) dial(ctx context.Context) (*ftp.ServerConn, error) {
	var conn *ftp.ServerConn
	err := withRetry(ctx, c.retry, "dial", func() error {
		var err error
		conn, err = c.dialOnce(ctx)
		return err
	})
	return conn, err
}

func (c *Client) dialOnce(ctx context.Context) (*ftp.ServerConn, error) {
	host := c.opts.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("dir", c.opts.Dir))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(c.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "remote: ftp dial")
	}
	if err := conn.Login(c.opts.User, c.opts.Password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "remote: ftp login")
	}
	return conn, nil
}

// ListExports returns the XML file names in the drop directory.
func (c *Client) ListExports(ctx context.Context) ([]string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	entries, err := conn.List(c.opts.Dir)
	if err != nil {
		return nil, eris.Wrapf(err, "remote: list %s", c.opts.Dir)
	}
	return exportNames(entries), nil
}

// exportNames filters a directory listing down to XML files.
func exportNames(entries []*ftp.Entry) []string {
	var names []string
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name), ".xml") {
			names = append(names, e.Name)
		}
	}
	return names
}

// FetchAll downloads every XML export in the drop directory into destDir and
// returns the local paths. Existing files are overwritten.
func (c *Client) FetchAll(ctx context.Context, destDir string) ([]string, error) {
	names, err := c.ListExports(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "remote: mkdir %s", destDir)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	var local []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return local, err
		}
		dst := filepath.Join(destDir, name)
		var n int64
		err := withRetry(ctx, c.retry, "retrieve", func() error {
			var err error
			n, err = c.retrieve(conn, path.Join(c.opts.Dir, name), dst)
			return err
		})
		if err != nil {
			return local, err
		}
		zap.L().Info("fetched plan export",
			zap.String("file", name),
			zap.Int64("bytes", n))
		local = append(local, dst)
	}
	return local, nil
}

func (c *Client) retrieve(conn *ftp.ServerConn, remotePath, localPath string) (int64, error) {
	resp, err := conn.Retr(remotePath)
	if err != nil {
		return 0, eris.Wrapf(err, "remote: retrieve %s", remotePath)
	}
	defer resp.Close() //nolint:errcheck

	f, err := os.Create(localPath)
	if err != nil {
		return 0, eris.Wrapf(err, "remote: create %s", localPath)
	}
	defer f.Close() //nolint:errcheck

	n, err := io.Copy(f, resp)
	if err != nil {
		return n, eris.Wrapf(err, "remote: write %s", localPath)
	}
	return n, nil
}
