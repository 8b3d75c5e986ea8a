package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"breslov-ai/internal/config"
	"breslov-ai/internal/library"
)

// supportedExtensions are the source formats a book file may use.
var supportedExtensions = []string{".txt", ".md"}

// IsSupportedFile reports whether path has a loadable extension.
func IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range supportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// readDocument reads path into a Document described by book. Markdown files are
// flattened to text lines; the first heading becomes the title when the book has none.
func readDocument(path string, book config.BookConfig, md *MarkdownFlattener) (*library.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("file %s is not valid UTF-8", path)
	}

	hash := sha256.Sum256(raw)
	titles := make(map[string]string, len(book.Titles)+1)
	for k, v := range book.Titles {
		titles[k] = v
	}

	var lines []string
	if strings.EqualFold(filepath.Ext(path), ".md") {
		var title string
		title, lines = md.Flatten(raw)
		if len(titles) == 0 && title != "" {
			titles["fr"] = title
		}
	} else {
		lines = splitTextLines(string(raw))
	}
	if len(titles) == 0 {
		titles["fr"] = extractTitleFromFilename(path)
	}

	text := strings.Join(lines, "\n")
	language := library.Language(book.Language)
	if language == "" {
		language = DetectLanguage(text)
	}

	return &library.Document{
		ID:       book.ID,
		Titles:   titles,
		Language: language,
		File:     filepath.Base(path),
		Text:     text,
		Lines:    lines,
		Hash:     hex.EncodeToString(hash[:]),
		LoadedAt: time.Now(),
	}, nil
}

// splitTextLines splits UTF-8 text on newlines, dropping a trailing empty line
// and a byte order mark.
func splitTextLines(s string) []string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// DetectLanguage guesses the source script of a document from its Hebrew ratio.
func DetectLanguage(text string) library.Language {
	ratio := HebrewRatio(text)
	switch {
	case ratio > rtlThreshold:
		return library.LanguageHebrew
	case ratio > 0.05:
		return library.LanguageMixed
	default:
		return library.LanguageFrench
	}
}

// BookIDFromFile derives a catalog id from a file name: "Chayei Moharan.txt" -> "chayei-moharan".
func BookIDFromFile(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ToLower(name)
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.'
	})
	return strings.Join(fields, "-")
}

// scannedFile is a book source found in the library directory.
type scannedFile struct {
	RelPath string
	AbsPath string
}

// scanLibrary lists the supported files under dir, skipping hidden directories.
func scanLibrary(ctx context.Context, dir string) ([]scannedFile, error) {
	var files []scannedFile
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSupportedFile(path) {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		files = append(files, scannedFile{RelPath: filepath.ToSlash(relPath), AbsPath: path})
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("failed to scan library %s: %w", dir, err)
	}
	return files, nil
}
