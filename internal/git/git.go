// Package git asks git which source files changed, so a directory split
// can be limited to them.
package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// ChangedFiles runs git diff against baseRef inside dir and returns the
// files that still exist, with paths joined onto dir.
func ChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "diff", "--relative", "-U0", baseRef, "--")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}
	changes, err := parseDiff(output)
	if err != nil {
		return nil, err
	}
	for i := range changes {
		changes[i].Path = filepath.Join(dir, filepath.FromSlash(changes[i].Path))
	}
	return changes, nil
}

// chunk header: @@ -oldStart,oldLen +newStart,newLen @@
var chunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var changes []ChangedFile
	var current *ChangedFile

	flush := func() {
		if current != nil && current.Path != "" {
			changes = append(changes, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "diff --git"):
			flush()
			current = &ChangedFile{}
		case current == nil:
			continue
		case strings.HasPrefix(line, "+++ "):
			// Deleted files have no new side.
			target := strings.TrimPrefix(line, "+++ ")
			if target == "/dev/null" {
				current.Path = ""
			} else {
				current.Path = strings.TrimPrefix(target, "b/")
			}
		case strings.HasPrefix(line, "@@"):
			m := chunkHeader.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			start, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("bad chunk header %q: %w", line, err)
			}
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			for i := 0; i < count; i++ {
				current.ChangedLines = append(current.ChangedLines, start+i)
			}
		}
	}
	flush()
	return changes, scanner.Err()
}
