package vectorindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

var geometryMagic = [4]byte{'R', 'B', 'I', 'X'}

const geometryVersion uint32 = 1

type metadataFile struct {
	IndexName string           `json:"index_name"`
	Count     int              `json:"count"`
	Documents map[string]Chunk `json:"documents"`
}

// WriteSnapshot encodes chunks and their vectors as an index pair in dir.
// Chunks without an ID get their position as ID.
func WriteSnapshot(dir, indexName string, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	ids := make([]string, len(chunks))
	docs := make(map[string]Chunk, len(chunks))
	for i, c := range chunks {
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("%d", i)
		}
		if _, dup := docs[id]; dup {
			return fmt.Errorf("duplicate chunk id %q", id)
		}
		c.ID = id
		ids[i] = id
		docs[id] = c
	}

	geom, err := encodeGeometry(ids, vectors)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(metadataFile{
		IndexName: indexName,
		Count:     len(docs),
		Documents: docs,
	})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, GeometryFile(indexName)), geom, 0644); err != nil {
		return fmt.Errorf("failed to write geometry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile(indexName)), meta, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// geometry layout, little endian:
// magic[4] version(u32) dim(u32) n(u32), then per item idLen(u32) id vec(f32[dim])
func encodeGeometry(ids []string, vectors [][]float32) ([]byte, error) {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("inconsistent vector dimension at %d: %d != %d", i, len(v), dim)
		}
	}

	var buf bytes.Buffer
	buf.Write(geometryMagic[:])
	for _, v := range []uint32{geometryVersion, uint32(dim), uint32(len(ids))} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	for i, id := range ids {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(id)))
		buf.WriteString(id)
		for _, f := range vectors[i] {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(f))
		}
	}
	return buf.Bytes(), nil
}

var errTruncated = errors.New("truncated geometry data")

func decodeGeometry(data []byte) (int, []string, [][]float32, error) {
	if len(data) < 16 || !bytes.Equal(data[:4], geometryMagic[:]) {
		return 0, nil, nil, errors.New("not a geometry file")
	}
	off := 4
	getU32 := func() (uint32, error) {
		if off+4 > len(data) {
			return 0, errTruncated
		}
		v := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		return v, nil
	}

	version, _ := getU32()
	if version != geometryVersion {
		return 0, nil, nil, fmt.Errorf("unsupported geometry version %d", version)
	}
	d, _ := getU32()
	n, _ := getU32()
	// every item needs at least its id length and its vector
	item := 4 + 4*uint64(d)
	if uint64(n) > uint64(len(data)-off)/item {
		return 0, nil, nil, fmt.Errorf("%w: header declares %d vectors of dimension %d", errTruncated, n, d)
	}
	dim := int(d)

	ids := make([]string, 0, n)
	vecs := make([][]float32, 0, n)
	for i := uint32(0); i < n; i++ {
		idLen, err := getU32()
		if err != nil {
			return 0, nil, nil, err
		}
		if uint64(idLen)+4*uint64(dim) > uint64(len(data)-off) {
			return 0, nil, nil, errTruncated
		}
		ids = append(ids, string(data[off:off+int(idLen)]))
		off += int(idLen)

		vec := make([]float32, dim)
		for j := range vec {
			bits, err := getU32()
			if err != nil {
				return 0, nil, nil, err
			}
			vec[j] = math.Float32frombits(bits)
		}
		vecs = append(vecs, vec)
	}
	if off != len(data) {
		return 0, nil, nil, fmt.Errorf("%d trailing bytes in geometry data", len(data)-off)
	}
	return dim, ids, vecs, nil
}

func decodeMetadata(data []byte) (map[string]Chunk, error) {
	var mf metadataFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if mf.Documents == nil {
		return nil, errors.New("metadata has no documents")
	}
	for id, c := range mf.Documents {
		c.ID = id
		mf.Documents[id] = c
	}
	return mf.Documents, nil
}
