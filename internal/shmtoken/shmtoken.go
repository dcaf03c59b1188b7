// Package shmtoken implements the shared-memory token channel: a single
// writer (the discovering worker) periodically publishes its current
// token set into a POSIX shared-memory region; many readers ingest it
// under a seqlock discipline that tolerates torn or missed updates as
// "try again next cycle."
package shmtoken

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// NewName generates a unique region name for an ephemeral channel, for
// callers that don't need a fixed, operator-chosen name to rendezvous
// on (e.g. a broker distributing the name to workers out-of-band).
func NewName(prefix string) string {
	return prefix + "-" + uuid.New().String()
}

// headerSize is the fixed 8-byte header: a 4-byte sequence counter
// followed by a 4-byte token count.
const headerSize = 8

// tokenLenPrefix is the per-record length prefix width.
const tokenLenPrefix = 2

// Channel is a POSIX shared-memory region (/dev/shm/<name>) laid out as
// [seq uint32][count uint32][records...], mapped into the process and
// shared across workers by name.
type Channel struct {
	data        []byte
	fd          int
	name        string
	isOwner     bool
	lastSeq     uint32
	maxTokens   int
	maxTokenLen int
}

// GetOrCreate opens the named shared-memory region, creating it (and
// becoming its owner) if it does not already exist. maxTokens and
// maxTokenLen bound the region's capacity and are only honored by the
// creator; an existing region keeps whatever size it was created with.
func GetOrCreate(name string, maxTokens, maxTokenLen int) (*Channel, error) {
	path := shmPath(name)
	size := headerSize + maxTokens*(tokenLenPrefix+maxTokenLen)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0o600)
	isOwner := true
	if err != nil {
		if err != unix.EEXIST {
			return nil, fmt.Errorf("shmtoken: create %s: %w", path, err)
		}
		isOwner = false
		fd, err = unix.Open(path, unix.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("shmtoken: open existing %s: %w", path, err)
		}
	}

	if isOwner {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("shmtoken: truncate %s: %w", path, err)
		}
	}

	st, err := stat(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	mapSize := int(st)
	if mapSize < headerSize {
		mapSize = size
	}

	data, err := unix.Mmap(fd, 0, mapSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmtoken: mmap %s: %w", path, err)
	}

	return &Channel{
		data:        data,
		fd:          fd,
		name:        name,
		isOwner:     isOwner,
		maxTokens:   maxTokens,
		maxTokenLen: maxTokenLen,
	}, nil
}

func stat(fd int) (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, fmt.Errorf("shmtoken: fstat: %w", err)
	}
	return st.Size, nil
}

func shmPath(name string) string {
	return "/dev/shm/" + name
}

// IsOwner reports whether this Channel created (and therefore owns) the
// underlying region.
func (c *Channel) IsOwner() bool { return c.isOwner }

// Close unmaps the region and closes its file descriptor. If this
// Channel owns the region, it also unlinks it — the owner's Close drops
// the name from the filesystem, matching the seqlock storage's
// "owner unlinks on drop" contract.
func (c *Channel) Close() error {
	if err := unix.Munmap(c.data); err != nil {
		return fmt.Errorf("shmtoken: munmap: %w", err)
	}
	if err := unix.Close(c.fd); err != nil {
		return fmt.Errorf("shmtoken: close: %w", err)
	}
	if c.isOwner {
		if err := os.Remove(shmPath(c.name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("shmtoken: unlink %s: %w", c.name, err)
		}
	}
	return nil
}

func (c *Channel) seqPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&c.data[0]))
}

// WriteTokens publishes tokens into the region under the seqlock
// discipline: bump the sequence to odd, write the payload, bump it back
// to even. Tokens that don't fit the region are silently truncated —
// the caller already bounded token length and count against the
// channel's configured capacity.
func (c *Channel) WriteTokens(tokens [][]byte) {
	atomic.AddUint32(c.seqPtr(), 1) // now odd: readers must retry

	maxData := len(c.data) - headerSize
	offset := 0
	written := uint32(0)

	for _, tok := range tokens {
		n := len(tok)
		if offset+tokenLenPrefix+n > maxData {
			break
		}
		binary.LittleEndian.PutUint16(c.data[headerSize+offset:], uint16(n))
		offset += tokenLenPrefix
		copy(c.data[headerSize+offset:headerSize+offset+n], tok)
		offset += n
		written++
	}

	binary.LittleEndian.PutUint32(c.data[4:8], written)

	atomic.AddUint32(c.seqPtr(), 1) // now even: payload visible
}

// ReadTokens ingests the current payload if it's stable and hasn't been
// seen before. It returns ok=false on a mid-write region (odd sequence)
// or a repeat of the last-seen publication — both are the normal
// "nothing new this cycle" outcome, not errors.
func (c *Channel) ReadTokens() ([][]byte, bool) {
	seq1 := atomic.LoadUint32(c.seqPtr())
	if seq1%2 == 1 || seq1 == c.lastSeq {
		return nil, false
	}

	count := binary.LittleEndian.Uint32(c.data[4:8])
	maxData := len(c.data) - headerSize
	offset := 0

	tokens := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if offset+tokenLenPrefix > maxData {
			break
		}
		n := int(binary.LittleEndian.Uint16(c.data[headerSize+offset:]))
		offset += tokenLenPrefix
		if offset+n > maxData {
			break
		}
		tok := append([]byte(nil), c.data[headerSize+offset:headerSize+offset+n]...)
		tokens = append(tokens, tok)
		offset += n
	}

	seq2 := atomic.LoadUint32(c.seqPtr())
	if seq1 != seq2 {
		return nil, false // writer was mid-publish; discard and retry next cycle
	}

	c.lastSeq = seq1
	return tokens, true
}
