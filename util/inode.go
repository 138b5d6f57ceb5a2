package util

import (
	"sync"

	"github.com/taigrr/colorhash"
)

// VirtualInodeBase is the first inode number handed out for synthetic
// entries. Real entries report the backing filesystem's inode, which in
// practice stays far below this.
const VirtualInodeBase uint64 = 1 << 62

const registryShards = 64

var (
	highestInode uint64 = VirtualInodeBase
	// could use atomic package for better performance, but this is simpler
	inodeLock = sync.Mutex{}

	shards [registryShards]registryShard
)

type registryShard struct {
	mu     sync.Mutex
	inodes map[string]uint64
}

// GetNewInode allocates a fresh synthetic inode number.
func GetNewInode() uint64 {
	inodeLock.Lock()
	defer inodeLock.Unlock()
	highestInode++
	return highestInode
}

// InodeFor returns the synthetic inode assigned to key, allocating one
// on first use. The same key maps to the same inode until ForgetInode.
func InodeFor(key string) uint64 {
	shard := shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if shard.inodes == nil {
		shard.inodes = make(map[string]uint64)
	}
	if inode, ok := shard.inodes[key]; ok {
		return inode
	}
	inode := GetNewInode()
	shard.inodes[key] = inode
	return inode
}

// ForgetInode drops the mapping for key.
func ForgetInode(key string) {
	shard := shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.inodes, key)
}

func shardFor(key string) *registryShard {
	h := colorhash.HashString(key) % registryShards
	if h < 0 {
		h = -h
	}
	return &shards[h]
}
