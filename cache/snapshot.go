package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hupe1980/querygo/blobstore"
	"github.com/hupe1980/querygo/codec"
	"github.com/hupe1980/querygo/internal/hash"
	"github.com/hupe1980/querygo/record"
)

// Snapshot file layout:
//
//	[magic "QGSN"][version u8][compression u8][codec name len u8][codec name]
//	[payload crc32c u32][payload len u32][payload: framed blocks]
//
// The payload is the codec-encoded entry list, block-compressed. The
// codec name in the header makes snapshots self-describing: load picks
// the codec by name, so the configured default may change between
// writer and reader.
const (
	snapshotMagic   = "QGSN"
	snapshotVersion = 1
)

type snapshotEntry struct {
	Key       string          `json:"key"`
	Records   []record.Record `json:"records"`
	FetchedAt int64           `json:"fetched_at"`
	TTL       int64           `json:"ttl"`
}

type snapshotFile struct {
	Entries []snapshotEntry `json:"entries"`
}

type snapshotOptions struct {
	codec       codec.Codec
	compression CompressionType
}

// SnapshotOption configures snapshot encoding.
type SnapshotOption func(*snapshotOptions)

// WithSnapshotCodec sets the codec used to encode snapshot entries.
// If nil is passed, codec.Default is used.
func WithSnapshotCodec(c codec.Codec) SnapshotOption {
	return func(o *snapshotOptions) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithSnapshotCompression sets the block compression for the payload.
func WithSnapshotCompression(ct CompressionType) SnapshotOption {
	return func(o *snapshotOptions) {
		o.compression = ct
	}
}

// WriteSnapshot persists all entries to a blob. Entries keep their
// original fetch time, so a snapshot restored after its TTL window
// still provides stale-fallback material rather than fresh data.
func (c *Cache) WriteSnapshot(ctx context.Context, store blobstore.BlobStore, name string, optFns ...SnapshotOption) error {
	o := snapshotOptions{
		codec:       codec.Default,
		compression: CompressionZSTD,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	c.mu.RLock()
	file := snapshotFile{Entries: make([]snapshotEntry, 0, len(c.entries))}
	for key, e := range c.entries {
		file.Entries = append(file.Entries, snapshotEntry{
			Key:       key,
			Records:   e.records,
			FetchedAt: e.fetchedAt.UnixNano(),
			TTL:       int64(e.ttl),
		})
	}
	c.mu.RUnlock()

	encoded, err := o.codec.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var payload bytes.Buffer
	bw := newBlockWriter(&payload, o.compression, 0)
	if _, err := bw.Write(encoded); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	codecName := o.codec.Name()
	if len(codecName) > 255 {
		return fmt.Errorf("codec name too long: %q", codecName)
	}

	buf := make([]byte, 0, 7+len(codecName)+8+payload.Len())
	buf = append(buf, snapshotMagic...)
	buf = append(buf, snapshotVersion, byte(o.compression), byte(len(codecName)))
	buf = append(buf, codecName...)
	buf = binary.LittleEndian.AppendUint32(buf, hash.CRC32C(payload.Bytes()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(payload.Len()))
	buf = append(buf, payload.Bytes()...)

	if err := store.Put(ctx, name, buf); err != nil {
		return fmt.Errorf("write snapshot blob: %w", err)
	}

	c.logger.Debug("snapshot written",
		"name", name,
		"entries", len(file.Entries),
		"bytes", len(buf),
	)
	return nil
}

// ReadSnapshot loads entries from a blob and merges them into the
// cache, overwriting existing entries per key. It returns the number of
// entries restored. Validation failures surface as ErrSnapshotCorrupt.
func (c *Cache) ReadSnapshot(ctx context.Context, store blobstore.BlobStore, name string) (int, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return 0, fmt.Errorf("read snapshot blob: %w", err)
	}

	if len(data) < 7 || string(data[:4]) != snapshotMagic {
		return 0, fmt.Errorf("%w: bad magic", ErrSnapshotCorrupt)
	}
	if data[4] != snapshotVersion {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrSnapshotCorrupt, data[4])
	}
	compression := CompressionType(data[5])
	nameLen := int(data[6])

	off := 7 + nameLen
	if len(data) < off+8 {
		return 0, fmt.Errorf("%w: truncated header", ErrSnapshotCorrupt)
	}
	codecName := string(data[7 : 7+nameLen])

	wantSum := binary.LittleEndian.Uint32(data[off:])
	payloadLen := int(binary.LittleEndian.Uint32(data[off+4:]))
	payload := data[off+8:]
	if len(payload) != payloadLen {
		return 0, fmt.Errorf("%w: payload length mismatch", ErrSnapshotCorrupt)
	}
	if !hash.Verify(payload, wantSum) {
		return 0, fmt.Errorf("%w: checksum mismatch", ErrSnapshotCorrupt)
	}

	co, ok := codec.ByName(codecName)
	if !ok {
		return 0, fmt.Errorf("%w: unknown codec %q", ErrSnapshotCorrupt, codecName)
	}

	encoded, err := decompressAll(payload, compression)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	var file snapshotFile
	if err := co.Unmarshal(encoded, &file); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", ErrSnapshotCorrupt, err)
	}

	c.mu.Lock()
	for _, se := range file.Entries {
		c.entries[se.Key] = &entry{
			records:   se.Records,
			fetchedAt: time.Unix(0, se.FetchedAt),
			ttl:       time.Duration(se.TTL),
		}
	}
	c.mu.Unlock()

	c.logger.Debug("snapshot restored",
		"name", name,
		"entries", len(file.Entries),
	)
	return len(file.Entries), nil
}
