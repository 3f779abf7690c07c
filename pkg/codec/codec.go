/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package codec converts recording streams to and from their persisted form:
// a protobuf wire format payload, wrapped into a single length delimited
// buffer and zlib compressed.
package codec

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tickharness/tickharness/pkg/recording"
)

// ErrEmpty is returned when a blob carries no payload at all.  Marshal never
// produces such a blob, not even for an empty stream.
var ErrEmpty = errors.New("recording is empty")

type Opt interface{}

type compressionLevelOpt int

// DefaultCompressionLevel is used when not overridden.
const DefaultCompressionLevel = zlib.DefaultCompression

// CompressionLevelOpt takes any of the compression levels supported
// by the golang standard zlib package.
func CompressionLevelOpt(level int) Opt {
	return compressionLevelOpt(level)
}

// Marshal encodes and compresses a stream.  Positions and rotations are
// quantized to whole units on the way.
func Marshal(stream *recording.Stream, opts ...Opt) ([]byte, error) {
	level := DefaultCompressionLevel
	for _, opt := range opts {
		switch v := opt.(type) {
		case compressionLevelOpt:
			level = int(v)
		}
	}

	payload := appendStream(nil, stream)

	buf := &bytes.Buffer{}
	zWriter, err := zlib.NewWriterLevel(buf, level)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid compression level %d", level)
	}

	if _, err := zWriter.Write(protowire.AppendBytes(nil, payload)); err != nil {
		return nil, errors.WithMessage(err, "could not compress recording")
	}

	if err := zWriter.Close(); err != nil {
		return nil, errors.WithMessage(err, "could not flush compressed recording")
	}

	return buf.Bytes(), nil
}

// Unmarshal decompresses and decodes a blob produced by Marshal.  Either the
// whole stream is returned, or an error and no stream at all.
func Unmarshal(blob []byte) (*recording.Stream, error) {
	if len(blob) == 0 {
		return nil, ErrEmpty
	}

	zReader, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, errors.WithMessage(err, "could not read source as a zlib stream")
	}
	defer zReader.Close()

	raw, err := io.ReadAll(zReader)
	if err != nil {
		return nil, errors.WithMessage(err, "could not decompress recording")
	}

	if len(raw) == 0 {
		return nil, ErrEmpty
	}

	payload, n := protowire.ConsumeBytes(raw)
	if n < 0 {
		return nil, errors.WithMessage(protowire.ParseError(n), "could not read payload envelope")
	}

	if n != len(raw) {
		return nil, errors.Errorf("%d trailing bytes after payload", len(raw)-n)
	}

	if len(payload) == 0 {
		return nil, ErrEmpty
	}

	stream := &recording.Stream{}
	if err := consumeStream(payload, stream); err != nil {
		return nil, errors.WithMessage(err, "malformed recording")
	}

	return stream, nil
}
