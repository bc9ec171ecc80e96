package netutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
)

// BufferSize is the size of every read performed on either side of a relay.
const BufferSize = 2048

var ErrIO = errors.New("connection io failed")

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, BufferSize)
		return &b
	},
}

// GetBuffer borrows a BufferSize byte slice from the pool. Return it with
// PutBuffer once the caller no longer references it.
func GetBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

func PutBuffer(b *[]byte) {
	bufferPool.Put(b)
}

// RelayChunks copies src to dst one read at a time, writing every chunk in
// full before the next read, until src reports EOF. It returns the number of
// bytes written. A clean EOF is not an error.
func RelayChunks(dst io.Writer, src io.Reader) (int64, error) {
	bufPtr := GetBuffer()
	defer PutBuffer(bufPtr)
	buf := *bufPtr

	var written int64
	for {
		n, rErr := src.Read(buf)
		if n > 0 {
			wn, wErr := dst.Write(buf[:n])
			written += int64(wn)
			if wErr != nil {
				return written, fmt.Errorf("%w: write: %w", ErrIO, wErr)
			}

			if wn != n {
				return written, fmt.Errorf("%w: write: %w", ErrIO, io.ErrShortWrite)
			}
		}

		if rErr != nil {
			if errors.Is(rErr, io.EOF) {
				return written, nil
			}

			return written, fmt.Errorf("%w: read: %w", ErrIO, rErr)
		}
	}
}

// WriteFull writes b to w, failing with ErrIO unless every byte is written.
func WriteFull(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return fmt.Errorf("%w: write: %w", ErrIO, err)
	}

	if n != len(b) {
		return fmt.Errorf("%w: write: %w", ErrIO, io.ErrShortWrite)
	}

	return nil
}

// CloseConns safely closes one or more io.Closer (like net.Conn).
// It is nil-safe and ignores errors from Close().
func CloseConns(closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
}

// IsClosedByPeer reports whether err means the other side went away, in
// which case there is nothing worth logging above debug level.
func IsClosedByPeer(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
