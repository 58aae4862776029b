package storage

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/driveon/backend/internal/config"
	"github.com/google/uuid"
	"github.com/jlaffaye/ftp"
)

// FTPStore keeps blobs on a remote FTP server. Each operation dials a fresh
// connection; FTP control sessions are cheap and this avoids keeping idle
// connections alive across requests.
type FTPStore struct {
	addr     string
	user     string
	password string
	path     string
}

func NewFTPStore(cfg *config.Config) *FTPStore {
	return &FTPStore{
		addr:     fmt.Sprintf("%s:%d", cfg.FTPHost, cfg.FTPPort),
		user:     cfg.FTPUser,
		password: cfg.FTPPassword,
		path:     cfg.FTPPath,
	}
}

func (s *FTPStore) connect() (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(s.addr, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("FTP connection failed: %w", err)
	}
	if err := conn.Login(s.user, s.password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("FTP login failed: %w", err)
	}
	if s.path != "" && s.path != "/" {
		if err := conn.ChangeDir(s.path); err != nil {
			// Try to create the directory first
			conn.MakeDir(s.path)
			if err := conn.ChangeDir(s.path); err != nil {
				conn.Quit()
				return nil, fmt.Errorf("FTP directory change failed: %w", err)
			}
		}
	}
	return conn, nil
}

func (s *FTPStore) Save(r io.Reader) (string, int64, error) {
	conn, err := s.connect()
	if err != nil {
		return "", 0, err
	}
	defer conn.Quit()

	// Stor gives no byte count back, so count while buffering
	var buf bytes.Buffer
	size, err := io.Copy(&buf, r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read upload: %w", err)
	}

	handle := uuid.NewString()
	if err := conn.Stor(handle, &buf); err != nil {
		return "", 0, fmt.Errorf("FTP upload failed: %w", err)
	}
	return handle, size, nil
}

func (s *FTPStore) Open(handle string) (io.ReadCloser, error) {
	conn, err := s.connect()
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(handle)
	if err != nil {
		conn.Quit()
		return nil, fmt.Errorf("FTP download failed: %w", err)
	}
	return &ftpReadCloser{resp: resp, conn: conn}, nil
}

func (s *FTPStore) Delete(handle string) error {
	conn, err := s.connect()
	if err != nil {
		return err
	}
	defer conn.Quit()
	return conn.Delete(handle)
}

// ftpReadCloser closes the data connection and quits the control session
type ftpReadCloser struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (rc *ftpReadCloser) Read(p []byte) (int, error) {
	return rc.resp.Read(p)
}

func (rc *ftpReadCloser) Close() error {
	err := rc.resp.Close()
	rc.conn.Quit()
	return err
}
