package pipeline

import (
	"archive/zip"
	_ "embed"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"coursegen/internal/fileutil"
)

const (
	packageFormat    = "coursegen-v1"
	packageGenerator = "coursegen"
)

//go:embed index.html.tmpl
var indexTemplateText string

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(indexTemplateText))

type indexView struct {
	Course        ManifestCourse
	Lessons       []ManifestLesson
	TotalDuration string
	Skipped       []string
}

// PackageMetadata describes the distributable archive of a course.
type PackageMetadata struct {
	PackageType string            `json:"packageType"`
	Format      string            `json:"format"`
	Version     string            `json:"version"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Generator   string            `json:"generator"`
	Course      ManifestCourse    `json:"course"`
	Checksums   map[string]string `json:"checksums"`
}

// ArchiveName is the file name of the zip package for a course.
func ArchiveName(courseID string) string { return courseID + ".zip" }

func writeIndex(staging string, m Manifest) error {
	view := indexView{
		Course:        m.Course,
		Lessons:       m.Lessons,
		TotalDuration: m.Assets.TotalDuration,
		Skipped:       m.SkippedLessons,
	}
	return fileutil.WriteAtomic(filepath.Join(staging, IndexFile), func(tmp string) error {
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		if err := indexTemplate.Execute(f, view); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		return os.Chmod(tmp, 0o644)
	})
}

// stagedFiles lists the regular files under staging as slash-separated
// relative paths in lexical order.
func stagedFiles(staging string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(staging, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		rel, err := filepath.Rel(staging, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}

// writePackageMetadata records a SHA-256 of every staged file, itself and
// the archive excluded.
func writePackageMetadata(staging string, m Manifest) error {
	files, err := stagedFiles(staging)
	if err != nil {
		return err
	}
	meta := PackageMetadata{
		PackageType: "course",
		Format:      packageFormat,
		Version:     manifestVersion,
		GeneratedAt: m.Course.CreatedAt,
		Generator:   packageGenerator,
		Course:      m.Course,
		Checksums:   make(map[string]string, len(files)),
	}
	for _, rel := range files {
		digest, _, err := fileutil.Checksum(filepath.Join(staging, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		meta.Checksums[rel] = digest
	}
	return writeJSON(filepath.Join(staging, PackageMetaFile), meta)
}

// writeArchive zips every staged file into <course id>.zip inside the course
// directory. The file list is taken before the archive exists so the
// archive never contains itself.
func writeArchive(staging, courseID string, modified time.Time) error {
	files, err := stagedFiles(staging)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(filepath.Join(staging, ArchiveName(courseID)), func(tmp string) error {
		out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		zw := zip.NewWriter(out)
		for _, rel := range files {
			if err := addToArchive(zw, staging, rel, modified); err != nil {
				_ = zw.Close()
				_ = out.Close()
				return err
			}
		}
		if err := zw.Close(); err != nil {
			_ = out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		return os.Chmod(tmp, 0o644)
	})
}

func addToArchive(zw *zip.Writer, staging, rel string, modified time.Time) error {
	src, err := os.Open(filepath.Join(staging, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer src.Close()
	header := &zip.FileHeader{Name: rel, Method: zip.Deflate, Modified: modified}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
