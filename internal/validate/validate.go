// Package validate performs structural and security checks against a fetched
// configuration bundle before it is deployed.
package validate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"confship/pkg/fileutil"
)

// Result aggregates the outcome of all sub-validators for a bundle.
type Result struct {
	YAMLSyntax bool
	Security   bool
	Errors     []string
}

// Valid reports whether every sub-validator passed.
func (r *Result) Valid() bool {
	return r.YAMLSyntax && r.Security
}

// Summary joins all sub-validator errors into one descriptive message.
func (r *Result) Summary() string {
	return strings.Join(r.Errors, "; ")
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password:\s*["']?[^\s"'!]{8,}`),
	regexp.MustCompile(`(?i)api_key:\s*["']?[A-Za-z0-9_\-]{16,}`),
	regexp.MustCompile(`(?i)access_token:\s*["']?[A-Za-z0-9_\-\.]{16,}`),
}

const maxValidatedFileSize = 4 << 20 // 4 MB

// Bundle validates every YAML file under dir. YAML syntax errors, entries
// escaping the bundle root, symlinks, and inline plaintext credentials all
// fail validation. Secrets belong in !secret references, not in the bundle.
func Bundle(dir string) (*Result, error) {
	if !fileutil.DirExists(dir) {
		return nil, fmt.Errorf("bundle directory does not exist: %s", dir)
	}

	result := &Result{YAMLSyntax: true, Security: true}

	err := filepath.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !fileutil.WithinRoot(dir, path) {
			result.Security = false
			result.Errors = append(result.Errors, fmt.Sprintf("entry escapes bundle root: %s", path))
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			result.Security = false
			result.Errors = append(result.Errors, fmt.Sprintf("symlink not allowed in bundle: %s", relName(dir, path)))
			return nil
		}

		if info.IsDir() || !isYAML(path) {
			return nil
		}

		if info.Size() > maxValidatedFileSize {
			result.Security = false
			result.Errors = append(result.Errors, fmt.Sprintf("file exceeds size limit: %s", relName(dir, path)))
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var doc any
		if err := yaml.Unmarshal(replaceCustomTags(data), &doc); err != nil {
			result.YAMLSyntax = false
			result.Errors = append(result.Errors, fmt.Sprintf("invalid YAML in %s: %v", relName(dir, path), err))
		}

		for _, pattern := range secretPatterns {
			if pattern.Match(data) {
				result.Security = false
				result.Errors = append(result.Errors, fmt.Sprintf("plaintext credential in %s", relName(dir, path)))
				break
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bundle walk failed: %w", err)
	}

	return result, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func relName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// Home Assistant configs use custom tags (!secret, !include) that the plain
// YAML parser rejects. They are quoted out before the syntax check.
var customTagPattern = regexp.MustCompile(`!(secret|include|include_dir_list|include_dir_merge_list|include_dir_named|include_dir_merge_named|env_var)\s+(\S+)`)

func replaceCustomTags(data []byte) []byte {
	return customTagPattern.ReplaceAll(data, []byte(`"$1 $2"`))
}
