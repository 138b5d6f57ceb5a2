package util

// registrySize counts the keys currently mapped.
func registrySize() int {
	total := 0
	for i := range shards {
		shards[i].mu.Lock()
		total += len(shards[i].inodes)
		shards[i].mu.Unlock()
	}
	return total
}

// clearRegistry drops every mapping. Allocation keeps counting upward
// so old numbers are never reissued.
func clearRegistry() {
	for i := range shards {
		shards[i].mu.Lock()
		shards[i].inodes = nil
		shards[i].mu.Unlock()
	}
}
