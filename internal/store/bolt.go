package store

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"sugarcube-l10n/internal/chunker"
	"sugarcube-l10n/internal/parser"
)

var (
	_ Store = (*Bolt)(nil)
	_ Store = (*Postgres)(nil)
)

var (
	bucketPassages = []byte("passages")
	bucketElements = []byte("elements")
	bucketChunks   = []byte("chunks")
)

// Bolt stores runs in a local bbolt file. Values are msgpack encoded.
// Passages and chunks are keyed by insertion sequence, elements by passage
// reference (file path and title).
type Bolt struct {
	db *bbolt.DB
}

// chunkRecord is a chunk without its elements.
type chunkRecord struct {
	Filepath string
	Passage  string
	Key      string
	Index    int
	PosStart int
	PosEnd   int
	Text     string
	Length   int
	Lines    int
}

// NewBolt opens or creates the bbolt file at path.
func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketPassages, bucketElements, bucketChunks} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (s *Bolt) Close() error {
	return s.db.Close()
}

func (s *Bolt) Reset(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketPassages, bucketElements, bucketChunks} {
			if err := tx.DeleteBucket(b); err != nil && err != bbolt.ErrBucketNotFound {
				return fmt.Errorf("delete bucket %s: %w", b, err)
			}
			if _, err := tx.CreateBucket(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
}

func (s *Bolt) SavePassages(_ context.Context, passages []parser.Passage) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPassages)
		for _, p := range passages {
			if err := putSequenced(b, p); err != nil {
				return fmt.Errorf("put passage %s: %w", p.Title, err)
			}
		}
		return nil
	})
}

// SaveElements groups elements by passage and stores each group under the
// passage reference, replacing earlier elements of that passage.
func (s *Bolt) SaveElements(_ context.Context, elements []parser.Element) error {
	groups := make(map[string][]parser.Element)
	var order []string
	for _, e := range elements {
		ref := parser.PassageRef(e.Filepath, e.Passage)
		if _, ok := groups[ref]; !ok {
			order = append(order, ref)
		}
		groups[ref] = append(groups[ref], e)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketElements)
		for _, ref := range order {
			data, err := msgpack.Marshal(groups[ref])
			if err != nil {
				return fmt.Errorf("encode elements of %s: %w", ref, err)
			}
			if err := b.Put([]byte(ref), data); err != nil {
				return fmt.Errorf("put elements of %s: %w", ref, err)
			}
		}
		return nil
	})
}

func (s *Bolt) SaveChunks(_ context.Context, chunks []chunker.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		for _, c := range chunks {
			rec := chunkRecord{
				Filepath: c.Filepath,
				Passage:  c.Passage,
				Key:      c.Key,
				Index:    c.Index,
				PosStart: c.PosStart,
				PosEnd:   c.PosEnd,
				Text:     c.Text,
				Length:   c.Length,
				Lines:    c.Lines,
			}
			if err := putSequenced(b, rec); err != nil {
				return fmt.Errorf("put chunk %s: %w", c.ID(), err)
			}
		}
		return nil
	})
}

func (s *Bolt) Passages(_ context.Context) ([]parser.Passage, error) {
	var passages []parser.Passage
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPassages).ForEach(func(_, v []byte) error {
			var p parser.Passage
			if err := msgpack.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode passage: %w", err)
			}
			passages = append(passages, p)
			return nil
		})
	})
	return passages, err
}

func (s *Bolt) Elements(_ context.Context, filepath, passage string) ([]parser.Element, error) {
	ref := parser.PassageRef(filepath, passage)
	var elements []parser.Element
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketElements).Get([]byte(ref))
		if data == nil {
			return nil
		}
		if err := msgpack.Unmarshal(data, &elements); err != nil {
			return fmt.Errorf("decode elements of %s: %w", ref, err)
		}
		return nil
	})
	return elements, err
}

func (s *Bolt) Chunks(_ context.Context) ([]chunker.Chunk, error) {
	var chunks []chunker.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(_, v []byte) error {
			var rec chunkRecord
			if err := msgpack.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode chunk: %w", err)
			}
			chunks = append(chunks, chunker.Chunk{
				Filepath: rec.Filepath,
				Passage:  rec.Passage,
				Key:      rec.Key,
				Index:    rec.Index,
				PosStart: rec.PosStart,
				PosEnd:   rec.PosEnd,
				Text:     rec.Text,
				Length:   rec.Length,
				Lines:    rec.Lines,
			})
			return nil
		})
	})
	return chunks, err
}

// putSequenced stores v under the next bucket sequence so that ForEach
// returns values in insertion order.
func putSequenced(b *bbolt.Bucket, v any) error {
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return b.Put(key, data)
}
