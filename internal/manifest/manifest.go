// Package manifest generates the assembly file that embeds every built
// application into the kernel image. Applications appear in build-index
// order, so the kernel's app ids match the ids the builds were linked for.
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"text/template"

	"github.com/vk/stridelink/internal/ctxlog"
	"github.com/vk/stridelink/internal/fsutil"
)

var linkAppTmpl = template.Must(template.New("link_app.S").Parse(`
    .align 3
    .section .data
    .globl _num_app
_num_app:
    .quad {{len .Apps}}
{{- range $i, $app := .Apps}}
    .quad app_{{$i}}_start
{{- end}}
    .quad app_{{.Last}}_end
    .globl _app_names
_app_names:
{{- range .Apps}}
    .string "{{.}}"
{{- end}}
{{range $i, $app := .Apps}}
    .section .data
    .globl app_{{$i}}_start
    .globl app_{{$i}}_end
    .align 3
app_{{$i}}_start:
    .incbin "{{$.ElfDir}}/{{$app}}.elf"
app_{{$i}}_end:
{{end -}}
`))

type linkAppData struct {
	Apps   []string
	Last   int
	ElfDir string
}

// Write renders the manifest for apps, which must already be in build-index
// order. Nothing is written for an empty list.
func Write(w io.Writer, apps []string, elfDir string) error {
	if len(apps) == 0 {
		return nil
	}
	data := linkAppData{
		Apps:   apps,
		Last:   len(apps) - 1,
		ElfDir: path.Clean(elfDir),
	}
	if err := linkAppTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render application manifest: %w", err)
	}
	return nil
}

// WriteFile renders the manifest into the file at dst, replacing it
// atomically.
func WriteFile(ctx context.Context, dst string, apps []string, elfDir string) error {
	logger := ctxlog.FromContext(ctx)

	buf := &bytes.Buffer{}
	if err := Write(buf, apps, elfDir); err != nil {
		return err
	}
	if err := fsutil.EnsureParentDir(dst); err != nil {
		return fmt.Errorf("failed to create directory for manifest %s: %w", dst, err)
	}
	if err := fsutil.WriteFileAtomic(dst, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", dst, err)
	}
	logger.Info("📦 Application manifest written.", "path", dst, "apps", len(apps))
	return nil
}
