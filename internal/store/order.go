package store

import "taskboard-backend/internal/model"

// removeID returns ids without every occurrence of id.
func removeID(ids model.StringList, id string) model.StringList {
	out := make(model.StringList, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// insertAt inserts id at index, clamping out-of-range indexes to the list
// bounds. Clients can race moves, so a stale index must not fail the write.
func insertAt(ids model.StringList, id string, index int) model.StringList {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make(model.StringList, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	out = append(out, ids[index:]...)
	return out
}
