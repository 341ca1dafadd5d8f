package embedcache

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/worldsun-app/coopeartion-project/internal/ai"
)

var bucketEmbeddings = []byte("embeddings")

// BoltStore persists embeddings across restarts so rebuilding the filename
// index only embeds catalog names it has not seen before.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Get(key string) ([]float32, bool, error) {
	var out []float32
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get([]byte(key))
		if data == nil {
			return nil
		}
		_, values, err := decodeRecord(data)
		if err != nil {
			return err
		}
		out = values
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (s *BoltStore) Put(key string, values []float32) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put([]byte(key), encodeRecord(s.now().Unix(), values))
	})
}

// DeleteBefore drops records written before cutoff (unix seconds). Corrupt
// records are dropped as well.
func (s *BoltStore) DeleteBefore(cutoff int64) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			ts, _, err := decodeRecord(v)
			if err != nil || ts < cutoff {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// record layout: 8 byte unix seconds followed by little endian float32s.
func encodeRecord(ts int64, values []float32) []byte {
	buf := make([]byte, 8+4*len(values))
	binary.LittleEndian.PutUint64(buf, uint64(ts))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[8+i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeRecord(data []byte) (int64, []float32, error) {
	if len(data) < 8 || (len(data)-8)%4 != 0 {
		return 0, nil, fmt.Errorf("corrupt embedding record: %d bytes", len(data))
	}
	ts := int64(binary.LittleEndian.Uint64(data))
	body := data[8:]
	out := make([]float32, len(body)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return ts, out, nil
}

func WrapBoltCacheToEmbedder(e ai.IEmbedder, store *BoltStore) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &boltEmbedder{next: e, store: store}
}

type boltEmbedder struct {
	next  ai.IEmbedder
	store *BoltStore
}

func (b *boltEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key, _, _ := buildCacheKey(b.next.ModelName(), taskType, text)
	values, ok, err := b.store.Get(key)
	if err != nil {
		logutil.GetLogger(ctx).Warn("read embedding cache failed", zap.Error(err))
	}
	if ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (bolt)", zap.String("task_type", taskType))
		return values, nil
	}
	res, err := b.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := b.store.Put(key, res); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func (b *boltEmbedder) ModelName() string {
	return b.next.ModelName()
}
