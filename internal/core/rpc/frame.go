package rpc

import (
	"bufio"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"

	"github.com/dep2p/go-gpsoffice/internal/core/wire"
)

// DefaultMaxFrameSize 默认单帧上限
const DefaultMaxFrameSize = 1 << 20

// writeFrame 写入 uvarint 长度前缀的帧
func writeFrame(w io.Writer, data []byte) error {
	buf := varint.ToUvarint(uint64(len(data)))
	buf = append(buf, data...)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取一帧
func readFrame(r *bufio.Reader, max int) ([]byte, error) {
	length, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if length > uint64(max) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, max)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeEnvelope(w io.Writer, env *wire.Envelope) error {
	return writeFrame(w, wire.MarshalEnvelope(env))
}

func readEnvelope(r *bufio.Reader, max int) (*wire.Envelope, error) {
	data, err := readFrame(r, max)
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalEnvelope(data)
}
