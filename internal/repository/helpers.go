package repository

import "github.com/lib/pq"

func pqArray(values []string) interface{} {
	return pq.Array(values)
}

func paging(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
