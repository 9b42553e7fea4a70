// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"fmt"
	"io"

	"github.com/flowd-org/ask/internal/ui/style"
)

func writeOK(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, style.Success("[OK] "+fmt.Sprintf(format, args...)))
}
