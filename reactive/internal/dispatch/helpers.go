package dispatch

import "github.com/cespare/xxhash/v2"

func hash(key string) int {
	return int(xxhash.Sum64String(key))
}

func indexByHash(key string, numChs int) int {
	switch numChs {
	case 0:
		panic("number of channels cannot be 0")
	case 1:
		return 0
	default:
		idx := hash(key) % numChs
		if idx < 0 {
			idx += numChs
		}
		return idx
	}
}
