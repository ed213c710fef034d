// Package compression provides the codecs used for stored page snapshots.
package compression

import "fmt"

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

const (
	Zstd = "zstd"
	Gzip = "gzip"
	None = "none"
)

// ForName returns the codec registered under name. An empty name selects zstd.
func ForName(name string) (Compressor, error) {
	switch name {
	case "", Zstd:
		return ZstdCompressor{}, nil
	case Gzip:
		return GzipCompressor{}, nil
	case None:
		return NoopCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

type NoopCompressor struct{}

func (NoopCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoopCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
