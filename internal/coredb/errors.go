// SPDX-License-Identifier: AGPL-3.0-or-later

package coredb

import (
	"errors"
	"strings"

	sqlite3 "modernc.org/sqlite/lib"
)

type sqliteCoder interface {
	Code() int
}

// IsJournalFull reports whether err means the journal cannot take more
// events: either the payload exceeds the journal limit or SQLite hit
// max_page_count.
func IsJournalFull(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrJournalQuotaExceeded) {
		return true
	}
	var coder sqliteCoder
	if errors.As(err, &coder) && coder.Code()&0xff == int(sqlite3.SQLITE_FULL) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "database or disk is full")
}
