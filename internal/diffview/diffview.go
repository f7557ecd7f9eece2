// Package diffview turns a change's patch into a renderable preview:
// per-file stats plus syntax-highlighted diff lines.
package diffview

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/sprite-ai/batchrev/internal/model"
)

// LineKind classifies one preview line.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineDeleted
	LineHunk
)

// Line is one renderable diff line.
type Line struct {
	Kind LineKind
	Text string
}

// FilePreview is the parsed diff for a single file.
type FilePreview struct {
	Info  model.FileInfo
	Lines []Line
}

// Preview is the parsed patch for one change.
type Preview struct {
	Files []FilePreview
}

// Stats returns aggregate counts across the preview.
func (p *Preview) Stats() (files, added, deleted int) {
	files = len(p.Files)
	for _, f := range p.Files {
		added += f.Info.Additions
		deleted += f.Info.Deletions
	}
	return
}

// FileInfos returns just the per-file stats, the shape the queue stores for
// lazily loaded file lists.
func (p *Preview) FileInfos() []model.FileInfo {
	out := make([]model.FileInfo, 0, len(p.Files))
	for _, f := range p.Files {
		out = append(out, f.Info)
	}
	return out
}

// Parse reads a unified diff into a Preview.
func Parse(patch string) (*Preview, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(patch))
	if err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}

	p := &Preview{}
	for _, f := range parsed {
		fp := FilePreview{Info: fileInfo(f)}
		for _, frag := range f.TextFragments {
			fp.Lines = append(fp.Lines, Line{
				Kind: LineHunk,
				Text: fmt.Sprintf("@@ -%d,%d +%d,%d @@", frag.OldPosition, frag.OldLines, frag.NewPosition, frag.NewLines),
			})
			for _, line := range frag.Lines {
				text := strings.TrimSuffix(line.Line, "\n")
				switch line.Op {
				case gitdiff.OpAdd:
					fp.Lines = append(fp.Lines, Line{Kind: LineAdded, Text: text})
					fp.Info.Additions++
				case gitdiff.OpDelete:
					fp.Lines = append(fp.Lines, Line{Kind: LineDeleted, Text: text})
					fp.Info.Deletions++
				default:
					fp.Lines = append(fp.Lines, Line{Kind: LineContext, Text: text})
				}
			}
		}
		p.Files = append(p.Files, fp)
	}
	return p, nil
}

func fileInfo(f *gitdiff.File) model.FileInfo {
	info := model.FileInfo{}
	switch {
	case f.IsNew:
		info.Status = "A"
		info.Path = f.NewName
	case f.IsDelete:
		info.Status = "D"
		info.Path = f.OldName
	case f.IsRename:
		info.Status = "R"
		info.Path = f.NewName
	default:
		info.Path = f.NewName
		if info.Path == "" {
			info.Path = f.OldName
		}
	}
	return info
}
