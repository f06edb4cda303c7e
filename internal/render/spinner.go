// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package render

import (
	"fmt"
	"io"
	"sync"
	"time"

	"atomicgo.dev/cursor"
)

// SpinnerFrames are braille frames similar to docker CLI.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StartSpinner animates text on a single line of w until the returned function is
// called. The cursor is hidden while the spinner runs; stopping clears the line.
func StartSpinner(w io.Writer, text string, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	cursor.Hide()

	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		i := 0
		width := 0
		for {
			select {
			case <-done:
				fmt.Fprintf(w, "\r%*s\r", width, "")
				return
			case <-t.C:
				line := fmt.Sprintf("%s %s", SpinnerFrames[i%len(SpinnerFrames)], text)
				if n := len([]rune(line)); n > width {
					width = n
				}
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			cursor.Show()
		})
	}
}
