package embedding

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// Cache memoizes vectors by content hash, in memory and optionally on
// disk. Disk entries are a little-endian uint32 length followed by the raw
// float32 values, written to a temp file and renamed into place.
type Cache struct {
	dir string

	mu  sync.RWMutex
	mem map[string][]float32
}

// NewCache builds a cache. An empty dir keeps vectors in memory only.
func NewCache(dir string) (*Cache, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	return &Cache{dir: dir, mem: make(map[string][]float32)}, nil
}

func cacheKey(model, text string) string {
	h := sha1.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(model, text string) ([]float32, bool) {
	key := cacheKey(model, text)

	c.mu.RLock()
	vec, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return vec, true
	}

	if c.dir == "" {
		return nil, false
	}
	vec, err := readVectorFile(filepath.Join(c.dir, key+".vec"))
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	c.mem[key] = vec
	c.mu.Unlock()
	return vec, true
}

func (c *Cache) Put(model, text string, vec []float32) {
	key := cacheKey(model, text)

	c.mu.Lock()
	c.mem[key] = vec
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	// Cache writes are best effort; a failed write only costs a recompute.
	_ = writeVectorFile(filepath.Join(c.dir, key+".vec"), vec)
}

func readVectorFile(path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("vector file too short: %s", path)
	}
	n := binary.LittleEndian.Uint32(raw[:4])
	if uint32(len(raw)-4) != n*4 {
		return nil, fmt.Errorf("vector file corrupt: %s", path)
	}
	vec := make([]float32, n)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(raw[4+i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

func writeVectorFile(path string, vec []float32) error {
	buf := make([]byte, 4+len(vec)*4)
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4+i*4:], math.Float32bits(v))
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
