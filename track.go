// Copyright 2026 The hdl Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// The tracker records elaboratables as they are created, so that a design
// unit that is constructed but never reached from the elaborated tree can
// be reported. Elaboration marks every visited elaboratable as used.
type tracker struct {
	mu      sync.Mutex
	order   []Elaboratable
	entries map[Elaboratable]*trackEntry
}

type trackEntry struct {
	file string
	line int
	used bool
}

var elaboratables = &tracker{entries: make(map[Elaboratable]*trackEntry)}

// Track registers e, noting the caller's source location. Constructors of
// elaboratables call Track on the value they are about to return; a
// tracked elaboratable that is never elaborated is reported by
// CheckUnused.
func Track(e Elaboratable) { trackAt(e, 2) }

// trackAt registers e with the creation site skip frames up the stack.
func trackAt(e Elaboratable, skip int) {
	_, file, line, _ := runtime.Caller(skip)
	elaboratables.mu.Lock()
	defer elaboratables.mu.Unlock()
	if _, ok := elaboratables.entries[e]; ok {
		return
	}
	elaboratables.order = append(elaboratables.order, e)
	elaboratables.entries[e] = &trackEntry{file: file, line: line}
}

func markUsed(e Elaboratable) {
	elaboratables.mu.Lock()
	defer elaboratables.mu.Unlock()
	if entry, ok := elaboratables.entries[e]; ok {
		entry.used = true
	}
}

// CheckUnused logs every tracked elaboratable that was never elaborated,
// returns how many there were, and resets the tracker.
func CheckUnused(logger logrus.FieldLogger) int {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	elaboratables.mu.Lock()
	defer elaboratables.mu.Unlock()
	unused := 0
	for _, e := range elaboratables.order {
		entry := elaboratables.entries[e]
		if !entry.used {
			unused++
			logger.WithFields(logrus.Fields{
				"file": entry.file,
				"line": entry.line,
			}).Warnf("%T created but never used", e)
		}
	}
	elaboratables.order = nil
	elaboratables.entries = make(map[Elaboratable]*trackEntry)
	return unused
}
