/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serializer.go
Description: Graph serialization. Encodes discovery results with a pluggable codec
(JSON via json-iterator, MessagePack) and optional gzip or zstd compression.
*/

package serialization

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrUnknownCodec is returned for an unrecognised codec name
	ErrUnknownCodec = errors.New("unknown codec")

	// ErrUnknownCompression is returned for an unrecognised compression name
	ErrUnknownCompression = errors.New("unknown compression")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec encodes and decodes values
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
	Name() string
}

// Compression names a compression algorithm
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name. Empty means none.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(name)); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// JSONCodec encodes with json-iterator in standard-library compatible mode
type JSONCodec struct {
	Indent bool
}

func (c *JSONCodec) Encode(v interface{}) ([]byte, error) {
	if c.Indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Name() string { return "json" }

// MsgpackCodec encodes with MessagePack using json struct tags as fallback keys
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (c *MsgpackCodec) Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

func (c *MsgpackCodec) Name() string { return "msgpack" }

// CodecByName returns the codec registered under name
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return &JSONCodec{}, nil
	case "json-pretty":
		return &JSONCodec{Indent: true}, nil
	case "msgpack", "messagepack":
		return &MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Serializer runs the encode -> compress pipeline and its inverse
type Serializer struct {
	codec       Codec
	compression Compression
}

// NewSerializer builds a serializer from codec and compression names
func NewSerializer(codecName, compression string) (*Serializer, error) {
	codec, err := CodecByName(codecName)
	if err != nil {
		return nil, err
	}
	comp, err := ParseCompression(compression)
	if err != nil {
		return nil, err
	}
	return &Serializer{codec: codec, compression: comp}, nil
}

// Codec returns the configured codec
func (s *Serializer) Codec() Codec { return s.codec }

// Compression returns the configured compression
func (s *Serializer) Compression() Compression { return s.compression }

// Serialize encodes then compresses v
func (s *Serializer) Serialize(v interface{}) ([]byte, error) {
	data, err := s.codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode with %s: %w", s.codec.Name(), err)
	}
	data, err = s.compress(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compress with %s: %w", s.compression, err)
	}
	return data, nil
}

// Deserialize decompresses then decodes data into v
func (s *Serializer) Deserialize(data []byte, v interface{}) error {
	raw, err := s.decompress(data)
	if err != nil {
		return fmt.Errorf("failed to decompress with %s: %w", s.compression, err)
	}
	if err := s.codec.Decode(raw, v); err != nil {
		return fmt.Errorf("failed to decode with %s: %w", s.codec.Name(), err)
	}
	return nil
}

func (s *Serializer) compress(data []byte) ([]byte, error) {
	switch s.compression {
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return data, nil
	}
}

func (s *Serializer) decompress(data []byte) ([]byte, error) {
	switch s.compression {
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return data, nil
	}
}
