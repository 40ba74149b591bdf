// Package files decides which files of a fetched repository are worth
// indexing and reads the ones that are.
package files

import (
	"path/filepath"
	"strings"
)

const (
	// DefaultSizeThreshold is the byte limit for ordinary files.
	DefaultSizeThreshold int64 = 512 * 1024
	// ReducedSizeThreshold applies to data-like files that are often generated.
	ReducedSizeThreshold int64 = 100 * 1024
	// MaxLines is the hard line cap; longer files are skipped.
	MaxLines = 5000
)

// Directories whose contents are never indexed, at any depth.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"coverage":     true,
	"generated":    true,
	"out":          true,
}

// Dependency lock files, skipped wherever they appear.
var lockFiles = map[string]bool{
	"package-lock.json":   true,
	"pnpm-lock.yaml":      true,
	"yarn.lock":           true,
	"npm-shrinkwrap.json": true,
}

var reducedThresholdExts = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".xml": true,
	".csv": true, ".tsv": true, ".log": true, ".svg": true,
}

var binaryExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".ico": true, ".svg": true, ".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true, ".zip": true,
	".tar": true, ".gz": true, ".rar": true, ".7z": true, ".exe": true,
	".dll": true, ".so": true, ".dylib": true, ".ttf": true, ".otf": true,
	".woff": true, ".woff2": true, ".mp3": true, ".mp4": true, ".wav": true,
	".avi": true, ".mov": true, ".sqlite": true, ".db": true,
}

var languages = map[string]string{
	".js":   "JavaScript",
	".jsx":  "JavaScript (React)",
	".ts":   "TypeScript",
	".tsx":  "TypeScript (React)",
	".py":   "Python",
	".rb":   "Ruby",
	".java": "Java",
	".html": "HTML",
	".css":  "CSS",
	".scss": "SCSS",
	".md":   "Markdown",
	".json": "JSON",
	".go":   "Go",
	".rs":   "Rust",
	".php":  "PHP",
	".cs":   "C#",
	".cpp":  "C++",
	".c":    "C",
}

// Reason explains why a file was left out. The empty Reason means included.
type Reason string

const (
	Included     Reason = ""
	Ignored      Reason = "ignored path"
	TooLarge     Reason = "too large"
	Binary       Reason = "binary"
	TooManyLines Reason = "too many lines"
	Unreadable   Reason = "unreadable"
	Blank        Reason = "blank"
)

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsIgnoredPath reports whether a slash-separated path relative to the
// repository root falls under a skipped directory, is a lock file, or is
// hidden.
func IsIgnoredPath(rel string) bool {
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segments {
		last := i == len(segments)-1
		if !last && skipDirs[seg] {
			return true
		}
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
		if last && lockFiles[seg] {
			return true
		}
	}
	return false
}

// IsSkippedDir reports whether a directory with this name is pruned from
// the walk.
func IsSkippedDir(name string) bool {
	return skipDirs[name] || strings.HasPrefix(name, ".")
}

// IsBinaryPath reports whether the extension marks a non-text file.
func IsBinaryPath(path string) bool {
	return binaryExtensions[ext(path)]
}

// SizeThreshold returns the byte limit that applies to path.
func SizeThreshold(path string) int64 {
	if reducedThresholdExts[ext(path)] {
		return ReducedSizeThreshold
	}
	return DefaultSizeThreshold
}

// LanguageOf returns the human-readable language for path, or "" when the
// extension is not recognised.
func LanguageOf(path string) string {
	return languages[ext(path)]
}

// Classify applies the path, size and extension rules. Content rules are
// checked separately with ExceedsLineCap once the file has been read.
func Classify(rel string, size int64) Reason {
	switch {
	case IsIgnoredPath(rel):
		return Ignored
	case size > SizeThreshold(rel):
		return TooLarge
	case IsBinaryPath(rel):
		return Binary
	}
	return Included
}

// ShouldInclude is Classify reduced to a yes/no answer.
func ShouldInclude(rel string, size int64) bool {
	return Classify(rel, size) == Included
}

// ExceedsLineCap reports whether content has more than MaxLines lines.
func ExceedsLineCap(content string) bool {
	return strings.Count(content, "\n")+1 > MaxLines
}
